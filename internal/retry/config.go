package retry

import (
	"time"

	"brieflow/internal/config"
	"brieflow/internal/services"
)

const minAttemptTimeout = 5 * time.Second

// FromConfig builds the LLM retry policy from the [retry] section.
func FromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		return DefaultPolicy()
	}
	minTimeout := minAttemptTimeout
	if attempt := cfg.AttemptTimeout(); attempt > 0 && attempt < minTimeout {
		minTimeout = attempt
	}
	return Policy{
		MaxRetries:        cfg.Retry.MaxRetries,
		BaseDelay:         cfg.RetryBaseDelay(),
		MaxDelay:          cfg.RetryMaxDelay(),
		JitterFraction:    cfg.Retry.JitterFraction,
		Retryable:         services.IsTransient,
		AttemptTimeout:    cfg.AttemptTimeout(),
		TimeoutDecay:      cfg.Retry.TimeoutDecay,
		MinAttemptTimeout: minTimeout,
	}
}
