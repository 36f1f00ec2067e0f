package creative

import (
	"context"
	"log/slog"

	"brieflow/internal/fanout"
	"brieflow/internal/logging"
	"brieflow/internal/pipeline"
	"brieflow/internal/services"
	"brieflow/internal/services/llm"
	"brieflow/internal/stage"
)

// CreativeExpertStage proposes one visual concept per strategy.
type CreativeExpertStage struct {
	deps   Deps
	logger *slog.Logger
}

// NewCreativeExpertStage constructs the creative expert stage.
func NewCreativeExpertStage(d Deps) *CreativeExpertStage {
	return &CreativeExpertStage{deps: d, logger: d.logger("creative_expert")}
}

// Name returns the stage name.
func (s *CreativeExpertStage) Name() string { return stage.CreativeExpert }

// Execute fans out one call per strategy. Failed concepts are dropped; the
// stage fails only when none succeed.
func (s *CreativeExpertStage) Execute(ctx context.Context, rc *pipeline.Context) error {
	strategies, err := stage.RequireSlot(stage.CreativeExpert, pipeline.SlotStrategies, &rc.Strategies)
	if err != nil {
		return failSlot(&rc.Concepts, err)
	}
	guides, _ := rc.StyleGuides.Get()
	byStrategy := make(map[string]pipeline.StyleGuide, len(guides))
	for _, g := range guides {
		byStrategy[g.StrategyName] = g
	}

	brief := describeBrief(rc.Inputs)
	op := func(ctx context.Context, _ int, strategy pipeline.Strategy) (pipeline.VisualConcept, pipeline.Usage, error) {
		prompt := brief + describeStrategy(strategy)
		if g, ok := byStrategy[strategy.Name]; ok {
			prompt += describeStyle(g)
		}
		concept, usage, err := complete[pipeline.VisualConcept](ctx, s.deps, stage.CreativeExpert,
			[]llm.Message{llm.System(conceptSystemPrompt), llm.User(prompt)}, rc.Inputs.Creativity)
		if err != nil {
			return concept, usage, err
		}
		concept.StrategyName = strategy.Name
		return concept, usage, nil
	}
	result := fanout.RunAll(ctx, strategies, op, fanout.Options[pipeline.VisualConcept]{
		FallbackUsage:  s.deps.FallbackUsage,
		MaxConcurrency: s.deps.MaxConcurrency,
		Stage:          stage.CreativeExpert,
		Logger:         s.logger,
	})
	chargeResult(ctx, s.deps, rc, stage.CreativeExpert, result)

	concepts := make([]pipeline.VisualConcept, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		if !o.IsFallback {
			concepts = append(concepts, o.Value)
		}
	}
	if len(concepts) == 0 {
		err := services.Wrap(services.ErrStageFailure, stage.CreativeExpert, "generate concepts", "every concept request failed", errorsOf(result))
		return failSlot(&rc.Concepts, err)
	}
	if err := rc.Concepts.Set(concepts); err != nil {
		return err
	}
	rc.Logf("creative_expert: produced %d concepts (%d dropped)", len(concepts), result.Fallbacks())
	logging.WithContext(ctx, s.logger).Info(
		"concepts generated",
		logging.String(logging.FieldEventType, "concepts_generated"),
		logging.Int("count", len(concepts)),
		logging.Int("dropped", result.Fallbacks()),
	)
	return nil
}

// HealthCheck verifies the stage model responds.
func (s *CreativeExpertStage) HealthCheck(ctx context.Context) stage.Health {
	return llmHealth(ctx, s.deps, stage.CreativeExpert)
}

func errorsOf[T any](r fanout.Result[T]) error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	return errs[len(errs)-1]
}
