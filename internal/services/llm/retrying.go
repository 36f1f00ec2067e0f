package llm

import (
	"context"
	"log/slog"
	"time"

	"brieflow/internal/logging"
	"brieflow/internal/retry"
)

// RetryingClient retries transient failures of the wrapped client.
type RetryingClient struct {
	inner  Client
	policy retry.Policy
	logger *slog.Logger
}

// WithRetry wraps client so each Create call follows policy.
func WithRetry(client Client, policy retry.Policy, logger *slog.Logger) *RetryingClient {
	return &RetryingClient{
		inner:  client,
		policy: policy,
		logger: logging.NewComponentLogger(logger, "llm"),
	}
}

// Create issues the completion, retrying transient failures.
func (c *RetryingClient) Create(ctx context.Context, model string, messages []Message, params Params) (Response, error) {
	policy := c.policy
	observe := policy.Observer
	policy.Observer = func(attempt int, delay time.Duration, err error) {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "llm_retry"),
			logging.String("model", model),
			logging.Int("attempt", attempt+1),
			logging.Int("max_attempts", policy.Attempts()),
			logging.Duration("delay", delay),
		}
		attrs = append(attrs, logging.ErrorAttrs(err)...)
		logging.WithContext(ctx, c.logger).Info("llm request retry", logging.Args(attrs...)...)
		if observe != nil {
			observe(attempt, delay, err)
		}
	}
	return retry.Do(ctx, policy, func(ctx context.Context, _ int) (Response, error) {
		return c.inner.Create(ctx, model, messages, params)
	})
}
