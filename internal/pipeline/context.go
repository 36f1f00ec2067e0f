package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"brieflow/internal/language"
)

// Creativity bounds.
const (
	MinCreativity = 1
	MaxCreativity = 3
)

// RunStatus is the overall state of a run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Inputs are the caller-supplied parameters of a run.
type Inputs struct {
	Brief          string          `json:"brief"`
	Platform       string          `json:"platform,omitempty"`
	Creativity     int             `json:"creativity"`
	Flags          map[string]bool `json:"flags,omitempty"`
	Language       string          `json:"language,omitempty"`
	NumStrategies  int             `json:"num_strategies,omitempty"`
	BrandKit       *BrandKit       `json:"brand_kit,omitempty"`
	StyleOverrides map[string]any  `json:"style_overrides,omitempty"`
}

// Flag reports whether a boolean input flag is set.
func (in Inputs) Flag(name string) bool {
	return in.Flags[name]
}

// Validate checks input ranges.
func (in Inputs) Validate() error {
	if strings.TrimSpace(in.Brief) == "" {
		return fmt.Errorf("brief is required")
	}
	if in.Creativity < MinCreativity || in.Creativity > MaxCreativity {
		return fmt.Errorf("creativity must be between %d and %d, got %d", MinCreativity, MaxCreativity, in.Creativity)
	}
	if in.NumStrategies < 0 {
		return fmt.Errorf("num_strategies must be >= 0")
	}
	if in.Language != "" && language.Normalize(in.Language) == "" {
		return fmt.Errorf("unrecognized language %q", in.Language)
	}
	return nil
}

// Context is the mutable state of one run. Stages run sequentially and own
// their output slots; Logs and Usage may be written from fan-out goroutines
// and are guarded.
type Context struct {
	RunID     string
	CreatedAt time.Time
	Inputs    Inputs

	SkipStages map[string]struct{}

	PresetID         string
	PresetKind       string
	PresetPayload    map[string]any
	OverrideBrandKit bool
	OverrideStyle    bool

	Strategies   Slot[[]Strategy]
	StyleGuides  Slot[[]StyleGuide]
	Concepts     Slot[[]VisualConcept]
	FinalPrompts Slot[[]FinalPrompt]
	Assessments  Slot[[]Assessment]

	Status       RunStatus
	ErrorMessage string
	StageRecords []StageRecord

	mu    sync.Mutex
	logs  []string
	usage map[string]UsageRecord
	now   func() time.Time
}

// New creates a pending run context with a fresh run ID.
func New(inputs Inputs) *Context {
	rc := &Context{
		RunID:      uuid.NewString(),
		Inputs:     inputs,
		SkipStages: make(map[string]struct{}),
		Status:     RunPending,
		usage:      make(map[string]UsageRecord),
		now:        time.Now,
	}
	rc.CreatedAt = rc.now()
	return rc
}

// SetClock overrides the time source used for log lines and records.
func (c *Context) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Now returns the context clock.
func (c *Context) Now() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// Logf appends a timestamped line to the run log.
func (c *Context) Logf(format string, args ...any) {
	line := fmt.Sprintf("%s %s", c.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	c.mu.Lock()
	c.logs = append(c.logs, line)
	c.mu.Unlock()
}

// Logs returns a copy of the run log.
func (c *Context) Logs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.logs))
	copy(out, c.logs)
	return out
}

// RecordUsage merges a usage record into the stage's running total.
func (c *Context) RecordUsage(stage string, rec UsageRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.usage == nil {
		c.usage = make(map[string]UsageRecord)
	}
	c.usage[stage] = c.usage[stage].Merge(rec)
}

// Usage returns a copy of per-stage usage.
func (c *Context) Usage() map[string]UsageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]UsageRecord, len(c.usage))
	for k, v := range c.usage {
		out[k] = v
	}
	return out
}

// TotalUsage sums usage across stages.
func (c *Context) TotalUsage() UsageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	stages := make([]string, 0, len(c.usage))
	for k := range c.usage {
		stages = append(stages, k)
	}
	sort.Strings(stages)
	var total UsageRecord
	for _, stage := range stages {
		total = total.Merge(c.usage[stage])
	}
	return total
}

// Skip adds a stage to the skip set.
func (c *Context) Skip(names ...string) {
	if c.SkipStages == nil {
		c.SkipStages = make(map[string]struct{})
	}
	for _, name := range names {
		c.SkipStages[name] = struct{}{}
	}
}

// ShouldSkip reports whether a stage is in the skip set.
func (c *Context) ShouldSkip(name string) bool {
	_, ok := c.SkipStages[name]
	return ok
}

// Record returns the stage record for name, if one exists.
func (c *Context) Record(name string) (StageRecord, bool) {
	for _, rec := range c.StageRecords {
		if rec.Name == name {
			return rec, true
		}
	}
	return StageRecord{}, false
}
