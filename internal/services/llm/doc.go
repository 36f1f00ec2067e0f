// Package llm provides OpenRouter chat clients for the creative stages.
//
// # Clients
//
// Client is the narrow interface stages depend on: one chat completion per
// Create call. Two implementations share the same transport:
//
//   - RawClient sends a plain chat completion.
//   - StructuredClient additionally requests a json_object response format.
//
// Select is the single place that chooses between them from configuration.
//
// # Errors
//
// Create never retries. Failures are tagged for the retry policy:
// HTTP 408/429/5xx, network timeouts and empty completions carry
// services.ErrTransient (with any Retry-After hint attached); other HTTP
// failures and undecodable responses carry services.ErrPermanent. An empty
// completion that stopped on the length limit carries services.ErrTruncated.
//
// # Retry Behaviour
//
// WithRetry wraps a Client in retry.Do so every call retries transient
// failures with exponential backoff. Context cancellation aborts retries
// immediately.
//
// # Configuration
//
// Requires api_key and model, and optionally base_url, referer, title,
// timeout and max_tokens. HealthCheck verifies the key and model respond.
package llm
