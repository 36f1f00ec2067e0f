package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"brieflow/internal/services"
)

const (
	defaultMaxRetries     = 3
	defaultBaseDelay      = time.Second
	defaultMaxDelay       = 10 * time.Second
	defaultJitterFraction = 0.25
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Observer is notified before each retry sleep.
type Observer func(attempt int, delay time.Duration, err error)

// RetryAfterHint is implemented by errors that carry a server-provided delay.
type RetryAfterHint interface {
	RetryAfter() time.Duration
}

// Policy describes how an operation is retried. The zero value never retries.
type Policy struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterFraction float64
	Retryable      func(error) bool

	// AttemptTimeout bounds each attempt when positive. Each retry multiplies
	// the previous timeout by TimeoutDecay (when in (0,1]) and never drops
	// below MinAttemptTimeout.
	AttemptTimeout    time.Duration
	TimeoutDecay      float64
	MinAttemptTimeout time.Duration

	Sleeper  Sleeper
	Rand     func() float64
	Observer Observer
}

// DefaultPolicy retries transient failures three times between 1s and 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     defaultMaxRetries,
		BaseDelay:      defaultBaseDelay,
		MaxDelay:       defaultMaxDelay,
		JitterFraction: defaultJitterFraction,
		Retryable:      services.IsTransient,
	}
}

// Attempts returns the total number of attempts the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// policy is exhausted. attempt is zero-based.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if op == nil {
		return zero, errors.New("retry: nil operation")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := policy.Attempts()
	var prevDelay time.Duration
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := runAttempt(ctx, policy, attempt, op)
		if err == nil {
			return value, nil
		}
		if ctx.Err() != nil || !policy.retryable(err) {
			return zero, err
		}
		if attempt == attempts-1 {
			if attempts == 1 {
				return zero, err
			}
			return zero, fmt.Errorf("failed after %d attempts: %w", attempts, err)
		}

		delay := policy.Delay(attempt, err)
		if delay < prevDelay {
			delay = prevDelay
		}
		prevDelay = delay
		if policy.Observer != nil {
			policy.Observer(attempt, delay, err)
		}
		if err := policy.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, errors.New("retry: unreachable")
}

func runAttempt[T any](ctx context.Context, policy Policy, attempt int, op func(context.Context, int) (T, error)) (T, error) {
	timeout := policy.AttemptTimeoutFor(attempt)
	if timeout <= 0 {
		return op(ctx, attempt)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx, attempt)
}

// Delay returns the wait before the retry following attempt. A Retry-After
// hint on err replaces the computed backoff and is capped at MaxDelay.
func (p Policy) Delay(attempt int, err error) time.Duration {
	var hint RetryAfterHint
	if errors.As(err, &hint) {
		if after := hint.RetryAfter(); after > 0 {
			return p.capDelay(after)
		}
	}
	delay := p.backoffDelay(attempt)
	if p.JitterFraction > 0 && delay > 0 {
		delay += time.Duration(p.random() * p.JitterFraction * float64(delay))
	}
	return delay
}

// backoffDelay is min(base*2^attempt, max).
func (p Policy) backoffDelay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if p.MaxDelay > 0 && delay > p.MaxDelay/2 {
			delay = p.MaxDelay
			break
		}
		delay *= 2
	}
	return p.capDelay(delay)
}

func (p Policy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// AttemptTimeoutFor returns the timeout of the given attempt, or zero when
// attempts are unbounded.
func (p Policy) AttemptTimeoutFor(attempt int) time.Duration {
	if p.AttemptTimeout <= 0 {
		return 0
	}
	timeout := p.AttemptTimeout
	if p.TimeoutDecay > 0 && p.TimeoutDecay < 1 {
		for i := 0; i < attempt; i++ {
			timeout = time.Duration(float64(timeout) * p.TimeoutDecay)
		}
	}
	if p.MinAttemptTimeout > 0 && timeout < p.MinAttemptTimeout {
		timeout = p.MinAttemptTimeout
	}
	return timeout
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.Retryable == nil {
		return services.IsTransient(err)
	}
	return p.Retryable(err)
}

func (p Policy) random() float64 {
	if p.Rand != nil {
		return p.Rand()
	}
	return rand.Float64()
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if p.Sleeper != nil {
		if err := p.Sleeper(ctx, delay); err != nil {
			return err
		}
		return ctx.Err()
	}
	return Sleep(ctx, delay)
}

// Sleep waits for delay or until ctx is done.
func Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
