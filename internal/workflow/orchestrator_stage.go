package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/google/uuid"

	"brieflow/internal/logging"
	"brieflow/internal/pipeline"
	"brieflow/internal/services"
	"brieflow/internal/stage"
)

// executeStage runs one stage and appends its record. It returns the stage
// error so the run can report the last failure; a stage that skipped itself
// for a missing upstream output returns nil.
func (o *Orchestrator) executeStage(ctx context.Context, rc *pipeline.Context, st stage.Stage) error {
	name := st.Name()
	stageCtx := services.WithStage(ctx, name)
	stageCtx = services.WithRequestID(stageCtx, uuid.NewString())
	stageLogger := logging.WithContext(stageCtx, o.logger)

	for _, obs := range o.observers {
		obs.BeforeStage(stageCtx, rc, name)
	}

	rec := pipeline.StageRecord{Name: name, State: pipeline.StageRunning, StartedAt: rc.Now()}
	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	rc.Logf("stage %s started", name)

	err := o.executeWithHeartbeat(stageCtx, stageLogger, rc, st)

	rec.FinishedAt = rc.Now()
	rec.Duration = rec.FinishedAt.Sub(rec.StartedAt)
	if skip, ok := stage.AsSkip(err); ok {
		rec.State = pipeline.StageSkipped
		rec.Reason = skip.Error()
		stageLogger.Info("stage skipped", logging.Args(append(
			logging.DecisionAttrs("stage_skip", "skipped", rec.Reason),
			logging.String(logging.FieldEventType, "stage_skip"),
		)...)...)
		rc.Logf("stage %s skipped (%s)", name, rec.Reason)
		err = nil
	} else if err != nil {
		rec.State = pipeline.StageFailed
		rec.Error = classifyFailure(name, err)
		o.handleStageFailure(stageLogger, rc, name, err, rec.Error)
	} else {
		rec.State = pipeline.StageCompleted
		stageLogger.Info(
			"stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", rec.Duration),
		)
		rc.Logf("stage %s completed in %s", name, rec.Duration)
	}
	rc.StageRecords = append(rc.StageRecords, rec)

	for _, obs := range o.observers {
		obs.AfterStage(stageCtx, rc, rec)
	}
	return err
}

func (o *Orchestrator) executeWithHeartbeat(ctx context.Context, logger *slog.Logger, rc *pipeline.Context, st stage.Stage) error {
	if o.heartbeat <= 0 {
		return invoke(ctx, rc, st)
	}
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go startHeartbeat(hbCtx, &hbWG, logger, o.heartbeat, rc.Now())

	err := invoke(ctx, rc, st)
	hbCancel()
	hbWG.Wait()
	return err
}

// invoke runs Prepare (when implemented) and Execute, turning panics into
// stage failures.
func invoke(ctx context.Context, rc *pipeline.Context, st stage.Stage) (err error) {
	name := st.Name()
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(
				services.ErrStageFailure,
				name,
				"execute",
				fmt.Sprintf("stage panicked: %v", r),
				&panicError{value: r, stack: string(debug.Stack())},
			)
		}
	}()
	if p, ok := st.(stage.Preparer); ok {
		if err := p.Prepare(ctx, rc); err != nil {
			return err
		}
	}
	return st.Execute(ctx, rc)
}

type panicError struct {
	value any
	stack string
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
