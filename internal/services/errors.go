package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransient        = errors.New("transient failure")
	ErrPermanent        = errors.New("permanent request error")
	ErrTruncated        = errors.New("response truncated")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrValidation       = errors.New("validation error")
	ErrItemFailure      = errors.New("item failure")
	ErrStageFailure     = errors.New("stage failure")
	ErrConfiguration    = errors.New("configuration error")
	ErrNotFound         = errors.New("not found")
)

var markers = []error{
	ErrTruncated,
	ErrExtractionFailed,
	ErrValidation,
	ErrTransient,
	ErrPermanent,
	ErrItemFailure,
	ErrStageFailure,
	ErrConfiguration,
	ErrNotFound,
}

// Kind is the short label of an error marker used in structured logs.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindTransient     Kind = "transient"
	KindPermanent     Kind = "permanent"
	KindTruncated     Kind = "truncated"
	KindExtraction    Kind = "extraction_failed"
	KindValidation    Kind = "validation_failed"
	KindItemFailure   Kind = "item_failure"
	KindStageFailure  Kind = "stage_failure"
	KindConfiguration Kind = "configuration"
	KindNotFound      Kind = "not_found"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	we := &wrappedError{marker: marker, stage: strings.TrimSpace(stage), operation: strings.TrimSpace(operation), message: strings.TrimSpace(message), cause: err}
	if err != nil {
		we.text = fmt.Sprintf("%s: %s: %s", marker.Error(), detail, err.Error())
	} else {
		we.text = fmt.Sprintf("%s: %s", marker.Error(), detail)
	}
	return we
}

type wrappedError struct {
	marker    error
	stage     string
	operation string
	message   string
	cause     error
	text      string
}

func (e *wrappedError) Error() string { return e.text }

func (e *wrappedError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.marker}
	}
	return []error{e.marker, e.cause}
}

// ErrorDetails summarizes a wrapped error for structured logging.
type ErrorDetails struct {
	Kind      Kind
	Stage     string
	Operation string
	Message   string
	Cause     error
}

// Details extracts the outermost Wrap metadata from err. Errors that were not
// produced by Wrap still receive a Kind when they match a marker.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: KindUnknown}
	}
	details := ErrorDetails{Kind: KindOf(err)}
	var we *wrappedError
	if errors.As(err, &we) {
		details.Stage = we.stage
		details.Operation = we.operation
		details.Message = we.message
		details.Cause = we.cause
	}
	return details
}

// KindOf classifies err against the marker set. The first matching marker wins,
// parser-specific markers taking precedence over transport ones.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, marker := range markers {
		if errors.Is(err, marker) {
			return kindForMarker(marker)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindUnknown
}

func kindForMarker(marker error) Kind {
	switch marker {
	case ErrTransient:
		return KindTransient
	case ErrPermanent:
		return KindPermanent
	case ErrTruncated:
		return KindTruncated
	case ErrExtractionFailed:
		return KindExtraction
	case ErrValidation:
		return KindValidation
	case ErrItemFailure:
		return KindItemFailure
	case ErrStageFailure:
		return KindStageFailure
	case ErrConfiguration:
		return KindConfiguration
	case ErrNotFound:
		return KindNotFound
	default:
		return KindUnknown
	}
}

// IsTransient reports whether err should be retried by the retry policy.
// Caller cancellation is never transient; a per-attempt deadline is.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrPermanent) {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
