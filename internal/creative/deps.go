package creative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"brieflow/internal/config"
	"brieflow/internal/cost"
	"brieflow/internal/llmjson"
	"brieflow/internal/logging"
	"brieflow/internal/pipeline"
	"brieflow/internal/services"
	"brieflow/internal/services/llm"
	"brieflow/internal/stage"
	"brieflow/internal/workflow"
)

// Deps are the collaborators shared by every stage.
type Deps struct {
	Client     llm.Client
	Calculator *cost.Calculator
	Logger     *slog.Logger
	// Model returns the model for a stage. Nil or empty defers to the client default.
	Model func(stage string) string
	// MaxConcurrency caps fan-out calls per stage. Zero is unbounded.
	MaxConcurrency int
	// FallbackUsage is charged per failed fan-out item.
	FallbackUsage pipeline.Usage
	// DefaultStrategies is used when the run does not ask for a count.
	DefaultStrategies int
}

// DepsFromConfig wires stage dependencies from cfg.
func DepsFromConfig(cfg *config.Config, client llm.Client, calc *cost.Calculator, logger *slog.Logger) Deps {
	return Deps{
		Client:         client,
		Calculator:     calc,
		Logger:         logger,
		Model:          cfg.ModelForStage,
		MaxConcurrency: cfg.FanOut.MaxConcurrency,
		FallbackUsage: pipeline.Usage{
			PromptTokens:     cfg.FanOut.FallbackPromptTokens,
			CompletionTokens: cfg.FanOut.FallbackCompletionTokens,
		},
		DefaultStrategies: cfg.Pipeline.NumStrategies,
	}
}

// Registry returns every built-in stage keyed by name.
func Registry(d Deps) workflow.Registry {
	return workflow.Registry{}.Register(
		NewStrategyStage(d),
		NewStyleGuideStage(d),
		NewCreativeExpertStage(d),
		NewPromptAssemblyStage(d),
		NewAssessmentStage(d),
	)
}

func (d Deps) logger(component string) *slog.Logger {
	return logging.NewComponentLogger(d.Logger, component)
}

func (d Deps) model(stageName string) string {
	if d.Model == nil {
		return ""
	}
	return strings.TrimSpace(d.Model(stageName))
}

// temperature maps creativity 1..3 onto a sampling temperature.
func temperature(creativity int) float64 {
	switch {
	case creativity <= pipeline.MinCreativity:
		return 0.4
	case creativity >= pipeline.MaxCreativity:
		return 1.0
	default:
		return 0.7
	}
}

// complete issues one LLM call and parses the reply into T.
func complete[T any](ctx context.Context, d Deps, stageName string, messages []llm.Message, creativity int, opts ...llmjson.Option) (T, pipeline.Usage, error) {
	var zero T
	if d.Client == nil {
		return zero, pipeline.Usage{}, services.Wrap(services.ErrConfiguration, stageName, "llm call", "llm client unavailable", nil)
	}
	resp, err := d.Client.Create(ctx, d.model(stageName), messages, llm.Params{Temperature: temperature(creativity)})
	if err != nil {
		return zero, resp.Usage, err
	}
	value, result, err := llmjson.ExtractAndValidate[T](resp.Text, opts...)
	if err != nil {
		return zero, resp.Usage, fmt.Errorf("%s: parse response: %w", stageName, err)
	}
	if result.Repaired {
		logging.WithContext(ctx, d.logger(stageName)).Debug(
			"model reply repaired",
			logging.String(logging.FieldEventType, "llm_reply_repaired"),
			logging.String("strategy", string(result.Strategy)),
			logging.Any("repairs", result.Repairs),
		)
	}
	return value, resp.Usage, nil
}

// charge prices usage spent over calls model requests and adds it to the
// stage's record on the run.
func (d Deps) charge(ctx context.Context, rc *pipeline.Context, stageName string, usage pipeline.Usage, fallback bool, calls int) {
	if usage.Total() == 0 && !fallback {
		return
	}
	if usage.ModelID == "" {
		usage.ModelID = d.model(stageName)
	}
	calc := d.Calculator
	if calc == nil {
		calc = cost.NewCalculator(nil)
	}
	rec, err := calc.Record(usage, fallback)
	if err != nil {
		logging.WithContext(ctx, d.logger(stageName)).Debug(
			"usage recorded without price",
			logging.String("model", usage.ModelID),
			logging.Error(err),
		)
	}
	rec.Calls = calls
	rc.RecordUsage(stageName, rec)
}

// failSlot marks a slot failed and returns err unchanged.
func failSlot[T any](slot *pipeline.Slot[T], err error) error {
	_ = slot.Fail(err.Error())
	return err
}

func llmHealth(ctx context.Context, d Deps, stageName string) stage.Health {
	if d.Client == nil {
		return stage.Unhealthy(stageName, "llm client unavailable")
	}
	model := d.model(stageName)
	if err := llm.HealthCheck(ctx, d.Client, model); err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	return stage.ModelReady(stageName, model)
}
