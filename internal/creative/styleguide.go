package creative

import (
	"context"
	"fmt"
	"log/slog"

	"brieflow/internal/fanout"
	"brieflow/internal/logging"
	"brieflow/internal/pipeline"
	"brieflow/internal/services/llm"
	"brieflow/internal/stage"
)

const fallbackMood = "clean, balanced, brand-neutral"

// StyleGuideStage writes one style guide per strategy.
type StyleGuideStage struct {
	deps   Deps
	logger *slog.Logger
}

// NewStyleGuideStage constructs the style guide stage.
func NewStyleGuideStage(d Deps) *StyleGuideStage {
	return &StyleGuideStage{deps: d, logger: d.logger("style_guide")}
}

// Name returns the stage name.
func (s *StyleGuideStage) Name() string { return stage.StyleGuide }

// Execute fans out one call per strategy. Failed items get a neutral guide
// built from the brand kit.
func (s *StyleGuideStage) Execute(ctx context.Context, rc *pipeline.Context) error {
	strategies, err := stage.RequireSlot(stage.StyleGuide, pipeline.SlotStrategies, &rc.Strategies)
	if err != nil {
		return failSlot(&rc.StyleGuides, err)
	}

	brief := describeBrief(rc.Inputs)
	op := func(ctx context.Context, _ int, strategy pipeline.Strategy) (pipeline.StyleGuide, pipeline.Usage, error) {
		messages := []llm.Message{
			llm.System(styleGuideSystemPrompt),
			llm.User(brief + describeStrategy(strategy)),
		}
		guide, usage, err := complete[pipeline.StyleGuide](ctx, s.deps, stage.StyleGuide, messages, rc.Inputs.Creativity)
		if err != nil {
			return guide, usage, err
		}
		guide.StrategyName = strategy.Name
		return guide, usage, nil
	}
	result := fanout.RunAll(ctx, strategies, op, fanout.Options[pipeline.StyleGuide]{
		Fallback: func(index int, _ error) pipeline.StyleGuide {
			return fallbackStyleGuide(strategies[index], rc.Inputs.BrandKit)
		},
		FallbackUsage:  s.deps.FallbackUsage,
		MaxConcurrency: s.deps.MaxConcurrency,
		Stage:          stage.StyleGuide,
		Logger:         s.logger,
	})
	chargeResult(ctx, s.deps, rc, stage.StyleGuide, result)

	guides := result.Values()
	if err := rc.StyleGuides.Set(guides); err != nil {
		return err
	}
	rc.Logf("style_guide: produced %d guides (%d fallback)", len(guides), result.Fallbacks())
	logging.WithContext(ctx, s.logger).Info(
		"style guides generated",
		logging.String(logging.FieldEventType, "style_guides_generated"),
		logging.Int("count", len(guides)),
		logging.Int("fallbacks", result.Fallbacks()),
	)
	return nil
}

func fallbackStyleGuide(strategy pipeline.Strategy, kit *pipeline.BrandKit) pipeline.StyleGuide {
	guide := pipeline.StyleGuide{
		StrategyName: strategy.Name,
		Mood:         fallbackMood,
		Lighting:     "soft natural light",
		Keywords:     []string{strategy.Name},
	}
	if kit != nil {
		guide.Palette = append([]string(nil), kit.Colors...)
		if len(kit.Fonts) > 0 {
			guide.Typography = kit.Fonts[0]
		}
	}
	return guide
}

// HealthCheck verifies the stage model responds.
func (s *StyleGuideStage) HealthCheck(ctx context.Context) stage.Health {
	return llmHealth(ctx, s.deps, stage.StyleGuide)
}

// chargeResult records the fan-out's aggregate usage, real plus fallback
// estimates, as one stage charge flagged when any item fell back.
func chargeResult[T any](ctx context.Context, d Deps, rc *pipeline.Context, stageName string, result fanout.Result[T]) {
	for _, o := range result.Outcomes {
		if o.IsFallback {
			rc.Logf("%s: item %d fell back: %s", stageName, o.Index, errorText(o.Err))
		}
	}
	if len(result.Outcomes) == 0 {
		return
	}
	d.charge(ctx, rc, stageName, result.Usage, result.Fallbacks() > 0, len(result.Outcomes))
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return fmt.Sprint(err)
}
