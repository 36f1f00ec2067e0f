package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"brieflow/internal/logging"
	"brieflow/internal/pipeline"
	"brieflow/internal/services"
	"brieflow/internal/stage"
)

// Sink persists finished runs.
type Sink interface {
	RecordRun(ctx context.Context, rc *pipeline.Context) error
}

// Observer receives stage lifecycle callbacks. Implementations must not
// block for long; they run on the orchestrator goroutine.
type Observer interface {
	BeforeStage(ctx context.Context, rc *pipeline.Context, name string)
	AfterStage(ctx context.Context, rc *pipeline.Context, rec pipeline.StageRecord)
}

// Orchestrator runs an ordered list of stages.
type Orchestrator struct {
	stages          []stage.Stage
	mustProduceName string
	mustProduce     func(*pipeline.Context) bool
	logger          *slog.Logger
	sinks           []Sink
	observers       []Observer
	heartbeat       time.Duration

	mu      sync.RWMutex
	running bool
	lastErr error
	lastRun *RunSummary
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithSink hands every finished run to sink. Sinks run in registration order.
func WithSink(sink Sink) Option {
	return func(o *Orchestrator) {
		if sink != nil {
			o.sinks = append(o.sinks, sink)
		}
	}
}

// WithObserver registers stage lifecycle callbacks.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithMustProduce names the slot a run must fill to count as completed.
func WithMustProduce(slot string) Option {
	return func(o *Orchestrator) { o.mustProduceName = slot }
}

// WithHeartbeat logs a progress line every interval while a stage runs.
func WithHeartbeat(interval time.Duration) Option {
	return func(o *Orchestrator) { o.heartbeat = interval }
}

// New builds an orchestrator. Stage names must be unique and non-empty.
func New(stages []stage.Stage, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{mustProduceName: pipeline.SlotFinalPrompts}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	o.logger = logging.NewComponentLogger(o.logger, "workflow-orchestrator")

	seen := make(map[string]struct{}, len(stages))
	for i, st := range stages {
		if st == nil {
			return nil, fmt.Errorf("stage %d is nil", i)
		}
		name := strings.TrimSpace(st.Name())
		if name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("stage %q registered more than once", name)
		}
		seen[name] = struct{}{}
	}
	o.stages = append([]stage.Stage(nil), stages...)

	check, err := pipeline.MustProduce(o.mustProduceName)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "orchestrator", "invalid must-produce slot", err)
	}
	o.mustProduce = check
	return o, nil
}

// StageNames returns the configured stage names in order.
func (o *Orchestrator) StageNames() []string {
	names := make([]string, len(o.stages))
	for i, st := range o.stages {
		names[i] = st.Name()
	}
	return names
}

// Run executes every stage in order and returns rc. Stage failures are
// recorded on rc, not returned; the error is non-nil only when rc is nil.
func (o *Orchestrator) Run(ctx context.Context, rc *pipeline.Context) (*pipeline.Context, error) {
	if rc == nil {
		return nil, errors.New("run context is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	o.setRunning(true)
	defer o.setRunning(false)

	ctx = services.WithRunID(ctx, rc.RunID)
	logger := logging.WithContext(ctx, o.logger)

	rc.Status = pipeline.RunRunning
	rc.ErrorMessage = ""
	started := rc.Now()
	logger.Info(
		"run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("stage_count", len(o.stages)),
		logging.String("skip_stages", strings.Join(sortedKeys(rc.SkipStages), ",")),
		logging.String("preset_kind", rc.PresetKind),
	)

	var lastErr error
	for i, st := range o.stages {
		name := st.Name()
		if err := ctx.Err(); err != nil {
			o.skipRemaining(ctx, rc, o.stages[i:], "cancelled")
			lastErr = services.Wrap(services.ErrStageFailure, name, "run", "run cancelled before stage started", err)
			logger.Warn("run cancelled; remaining stages skipped",
				logging.String(logging.FieldEventType, "run_cancelled"),
				logging.String("next_stage", name),
				logging.String(logging.FieldErrorHint, "rerun the brief; completed stages are not resumed"),
				logging.String(logging.FieldImpact, "remaining stages did not run"),
			)
			break
		}
		if rc.ShouldSkip(name) {
			o.recordSkip(ctx, rc, name, skipReason(rc))
			logger.Info("stage skipped", logging.Args(append(
				logging.DecisionAttrs("stage_skip", "skipped", skipReason(rc)),
				logging.String(logging.FieldStage, name),
				logging.String(logging.FieldEventType, "stage_skip"),
			)...)...)
			continue
		}
		if err := o.executeStage(ctx, rc, st); err != nil {
			lastErr = err
		}
	}

	o.finish(logger, rc, lastErr, started)
	o.persist(ctx, logger, rc)
	o.recordSummary(rc, lastErr)
	return rc, nil
}

func (o *Orchestrator) finish(logger *slog.Logger, rc *pipeline.Context, lastErr error, started time.Time) {
	duration := rc.Now().Sub(started)
	if o.mustProduce(rc) {
		rc.Status = pipeline.RunCompleted
		rc.Logf("run completed")
		logger.Info(
			"run completed",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.Duration("run_duration", duration),
			logging.Int("failed_stages", countState(rc, pipeline.StageFailed)),
		)
		return
	}

	rc.Status = pipeline.RunFailed
	if lastErr != nil {
		rc.ErrorMessage = classifyFailure("", lastErr)
	} else {
		rc.ErrorMessage = fmt.Sprintf("required output %s was not produced", o.mustProduceName)
	}
	rc.Logf("run failed: %s", rc.ErrorMessage)
	logging.ErrorWithContext(logger, "run failed", "run_failure",
		logging.String("must_produce", o.mustProduceName),
		logging.String("error_message", rc.ErrorMessage),
		logging.Duration("run_duration", duration),
		logging.Alert("run_failure"),
		logging.String(logging.FieldErrorHint, "inspect the failed stage records for this run"),
	)
}

func (o *Orchestrator) persist(ctx context.Context, logger *slog.Logger, rc *pipeline.Context) {
	for _, sink := range o.sinks {
		if err := sink.RecordRun(context.WithoutCancel(ctx), rc); err != nil {
			logging.WarnWithContext(logger, "run sink failed", "run_sink_failed",
				logging.Error(err),
				logging.String("sink", fmt.Sprintf("%T", sink)),
				logging.String(logging.FieldImpact, "run history, usage, or notifications for this run are missing"),
				logging.String(logging.FieldErrorHint, "check the data directory is writable and the notification topic is reachable"),
			)
		}
	}
}

func (o *Orchestrator) skipRemaining(ctx context.Context, rc *pipeline.Context, stages []stage.Stage, reason string) {
	for _, st := range stages {
		o.recordSkip(ctx, rc, st.Name(), reason)
	}
}

func (o *Orchestrator) recordSkip(ctx context.Context, rc *pipeline.Context, name, reason string) {
	now := rc.Now()
	rec := pipeline.StageRecord{
		Name:       name,
		State:      pipeline.StageSkipped,
		StartedAt:  now,
		FinishedAt: now,
		Reason:     reason,
	}
	rc.StageRecords = append(rc.StageRecords, rec)
	rc.Logf("stage %s skipped (%s)", name, reason)
	for _, obs := range o.observers {
		obs.BeforeStage(ctx, rc, name)
		obs.AfterStage(ctx, rc, rec)
	}
}

func skipReason(rc *pipeline.Context) string {
	if rc.PresetKind != "" {
		return rc.PresetKind + " preset"
	}
	return "skip set"
}

func countState(rc *pipeline.Context, state pipeline.StageState) int {
	n := 0
	for _, rec := range rc.StageRecords {
		if rec.State == state {
			n++
		}
	}
	return n
}
