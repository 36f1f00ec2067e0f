// Package retry runs an operation with exponential backoff and jitter.
//
// Only errors the policy classifies as retryable are retried; everything
// else returns immediately. Sleeps honour context cancellation. Tests inject
// a Sleeper and Rand to observe delays without waiting.
package retry
