// Package notifications publishes run outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never need to branch on whether alerts are enabled. RunNotifier
// adapts a Service to the orchestrator's sink interface.
package notifications
