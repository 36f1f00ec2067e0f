package pipeline

import "errors"

// ErrSlotAlreadySet is returned when a stage writes a slot a second time.
var ErrSlotAlreadySet = errors.New("slot already set")

// SlotState tracks whether a stage output exists.
type SlotState int

const (
	SlotAbsent SlotState = iota
	SlotPresent
	SlotFailed
)

func (s SlotState) String() string {
	switch s {
	case SlotPresent:
		return "present"
	case SlotFailed:
		return "failed"
	default:
		return "absent"
	}
}

// Slot is a single-writer stage output.
type Slot[T any] struct {
	value  T
	state  SlotState
	reason string
}

// Set stores the stage output.
func (s *Slot[T]) Set(v T) error {
	if s.state == SlotPresent {
		return ErrSlotAlreadySet
	}
	s.value = v
	s.state = SlotPresent
	s.reason = ""
	return nil
}

// Fail marks the slot as failed with a reason. Readers see it as absent.
func (s *Slot[T]) Fail(reason string) error {
	if s.state == SlotPresent {
		return ErrSlotAlreadySet
	}
	s.state = SlotFailed
	s.reason = reason
	return nil
}

// Get returns the value when present.
func (s *Slot[T]) Get() (T, bool) {
	if s.state != SlotPresent {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Present reports whether the slot holds a value.
func (s *Slot[T]) Present() bool { return s.state == SlotPresent }

// State reports the slot state.
func (s *Slot[T]) State() SlotState { return s.state }

// Reason returns the failure reason for a failed slot.
func (s *Slot[T]) Reason() string { return s.reason }
