package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"brieflow/internal/services"
)

type httpStatusError struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// RetryAfter exposes the server-provided Retry-After delay to the retry policy.
func (e *httpStatusError) RetryAfter() time.Duration {
	return e.Delay
}

func (e *httpStatusError) transient() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op,
		e.FinishReason,
		e.Refusal,
		e.Snippet,
	)
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

type apiError struct{ message string }

func (e *apiError) Error() string {
	if e.message == "" {
		return "llm request: provider returned an error"
	}
	return "llm request: provider error: " + e.message
}

// classifyError tags a transport failure with the services marker the retry
// policy keys on. Cancellation is returned untouched.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var empty *emptyContentError
	if errors.As(err, &empty) {
		if strings.EqualFold(empty.FinishReason, "length") {
			return services.Wrap(services.ErrTruncated, "", operation, "completion hit the token limit", err)
		}
		return services.Wrap(services.ErrTransient, "", operation, "empty completion", err)
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if statusErr.transient() {
			return services.Wrap(services.ErrTransient, "", operation, fmt.Sprintf("http %d", statusErr.StatusCode), err)
		}
		return services.Wrap(services.ErrPermanent, "", operation, fmt.Sprintf("http %d", statusErr.StatusCode), err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTransient, "", operation, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTransient, "", operation, "network timeout", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return services.Wrap(services.ErrTransient, "", operation, "request timed out", err)
		}
		return services.Wrap(services.ErrTransient, "", operation, "connection failed", err)
	}

	return services.Wrap(services.ErrPermanent, "", operation, "request failed", err)
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
