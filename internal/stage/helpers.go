package stage

import (
	"errors"
	"fmt"

	"brieflow/internal/pipeline"
)

// SkipError reports that a stage did no work because an upstream output is
// absent. The orchestrator records the stage as skipped with the error text
// as its reason; it never becomes the run's error message.
type SkipError struct {
	Stage  string
	Slot   string
	Reason string
}

func (e *SkipError) Error() string {
	msg := fmt.Sprintf("upstream %s unavailable", e.Slot)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// AsSkip reports whether err asks for the stage to be recorded as skipped.
func AsSkip(err error) (*SkipError, bool) {
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip, true
	}
	return nil, false
}

// RequireSlot returns the slot value, or a *SkipError naming the absent
// upstream output.
func RequireSlot[T any](stageName, slotName string, slot *pipeline.Slot[T]) (T, error) {
	if v, ok := slot.Get(); ok {
		return v, nil
	}
	var zero T
	return zero, &SkipError{Stage: stageName, Slot: slotName, Reason: slot.Reason()}
}
