package stage

import (
	"context"

	"brieflow/internal/pipeline"
)

// Stage is one unit of work in a run. Execute reads upstream slots from the
// run context and writes its own slot.
type Stage interface {
	Name() string
	Execute(context.Context, *pipeline.Context) error
}

// Preparer is implemented by stages that validate inputs before executing.
type Preparer interface {
	Prepare(context.Context, *pipeline.Context) error
}

// HealthChecker is implemented by stages that depend on external services.
type HealthChecker interface {
	HealthCheck(context.Context) Health
}

// Func adapts a function into a Stage.
type Func struct {
	StageName string
	Run       func(context.Context, *pipeline.Context) error
}

// Name returns the stage name.
func (f Func) Name() string { return f.StageName }

// Execute calls Run.
func (f Func) Execute(ctx context.Context, rc *pipeline.Context) error {
	if f.Run == nil {
		return nil
	}
	return f.Run(ctx, rc)
}
