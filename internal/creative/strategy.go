package creative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"brieflow/internal/llmjson"
	"brieflow/internal/logging"
	"brieflow/internal/pipeline"
	"brieflow/internal/services"
	"brieflow/internal/services/llm"
	"brieflow/internal/stage"
)

const fallbackStrategyCount = 3

type strategyReply struct {
	Strategies []pipeline.Strategy `json:"strategies"`
}

func (r strategyReply) Validate() error {
	if len(r.Strategies) == 0 {
		return errors.New("no strategies returned")
	}
	var errs []error
	for i, s := range r.Strategies {
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("strategy %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// wrapStrategyList accepts a bare list where an object was asked for.
func wrapStrategyList(v any) any {
	if list, ok := v.([]any); ok {
		return map[string]any{"strategies": list}
	}
	return v
}

// StrategyStage derives marketing strategies from the brief.
type StrategyStage struct {
	deps   Deps
	logger *slog.Logger
}

// NewStrategyStage constructs the strategy stage.
func NewStrategyStage(d Deps) *StrategyStage {
	return &StrategyStage{deps: d, logger: d.logger("strategy")}
}

// Name returns the stage name.
func (s *StrategyStage) Name() string { return stage.Strategy }

// Prepare validates the run inputs.
func (s *StrategyStage) Prepare(_ context.Context, rc *pipeline.Context) error {
	if err := rc.Inputs.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, stage.Strategy, "validate inputs", "invalid run inputs", err)
	}
	return nil
}

// Execute asks the model for strategies and stores them.
func (s *StrategyStage) Execute(ctx context.Context, rc *pipeline.Context) error {
	count := s.count(rc)
	messages := []llm.Message{
		llm.System(strategySystemPrompt),
		llm.User(fmt.Sprintf("%sReturn exactly %d strategies.", describeBrief(rc.Inputs), count)),
	}
	reply, usage, err := complete[strategyReply](ctx, s.deps, stage.Strategy, messages, rc.Inputs.Creativity,
		llmjson.WithFallback(wrapStrategyList))
	s.deps.charge(ctx, rc, stage.Strategy, usage, false, 1)
	if err != nil {
		return failSlot(&rc.Strategies, err)
	}

	strategies := reply.Strategies
	if len(strategies) > count {
		strategies = strategies[:count]
	}
	if err := rc.Strategies.Set(strategies); err != nil {
		return err
	}
	rc.Logf("strategy: produced %d strategies", len(strategies))
	logging.WithContext(ctx, s.logger).Info(
		"strategies generated",
		logging.String(logging.FieldEventType, "strategies_generated"),
		logging.Int("count", len(strategies)),
		logging.Int("requested", count),
	)
	return nil
}

// HealthCheck verifies the stage model responds.
func (s *StrategyStage) HealthCheck(ctx context.Context) stage.Health {
	return llmHealth(ctx, s.deps, stage.Strategy)
}

func (s *StrategyStage) count(rc *pipeline.Context) int {
	if rc.Inputs.NumStrategies > 0 {
		return rc.Inputs.NumStrategies
	}
	if s.deps.DefaultStrategies > 0 {
		return s.deps.DefaultStrategies
	}
	return fallbackStrategyCount
}
