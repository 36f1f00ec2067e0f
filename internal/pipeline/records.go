package pipeline

import (
	"fmt"
	"time"
)

// StageState is the lifecycle state of one stage within a run.
type StageState string

const (
	StagePending   StageState = "pending"
	StageRunning   StageState = "running"
	StageCompleted StageState = "completed"
	StageFailed    StageState = "failed"
	StageSkipped   StageState = "skipped"
)

// StageRecord is the outcome of one stage.
type StageRecord struct {
	Name       string        `json:"name"`
	State      StageState    `json:"state"`
	StartedAt  time.Time     `json:"started_at,omitzero"`
	FinishedAt time.Time     `json:"finished_at,omitzero"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// Slot names accepted as a run's must-produce output.
const (
	SlotStrategies   = "strategies"
	SlotStyleGuides  = "style_guides"
	SlotConcepts     = "concepts"
	SlotFinalPrompts = "final_prompts"
	SlotAssessments  = "assessments"
)

// SlotNames lists slot names in pipeline order.
func SlotNames() []string {
	return []string{SlotStrategies, SlotStyleGuides, SlotConcepts, SlotFinalPrompts, SlotAssessments}
}

// SlotPresent reports whether the named slot holds a value.
func (c *Context) SlotPresent(name string) (bool, error) {
	switch name {
	case SlotStrategies:
		return c.Strategies.Present(), nil
	case SlotStyleGuides:
		return c.StyleGuides.Present(), nil
	case SlotConcepts:
		return c.Concepts.Present(), nil
	case SlotFinalPrompts:
		return c.FinalPrompts.Present(), nil
	case SlotAssessments:
		return c.Assessments.Present(), nil
	default:
		return false, fmt.Errorf("unknown slot %q", name)
	}
}

// MustProduce returns a predicate checking the named slot.
func MustProduce(name string) (func(*Context) bool, error) {
	if _, err := (&Context{}).SlotPresent(name); err != nil {
		return nil, err
	}
	return func(c *Context) bool {
		ok, _ := c.SlotPresent(name)
		return ok
	}, nil
}
