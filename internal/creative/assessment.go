package creative

import (
	"context"
	"log/slog"
	"math"

	"brieflow/internal/fanout"
	"brieflow/internal/llmjson"
	"brieflow/internal/logging"
	"brieflow/internal/pipeline"
	"brieflow/internal/services/llm"
	"brieflow/internal/stage"
	"brieflow/internal/textutil"
)

// FallbackScore is the neutral score given when an assessment call fails.
const FallbackScore = 5.0

type assessmentReply struct {
	Score float64 `json:"score"`
	Notes string  `json:"notes"`
}

func (r assessmentReply) Validate() error {
	return pipeline.Assessment{Score: r.Score}.Validate()
}

// clampScore maps ten-point replies given on a 0..100 scale back into range.
func clampScore(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if score, ok := m["score"].(float64); ok && score > 10 && score <= 100 {
		m["score"] = score / 10
	}
	return m
}

// AssessmentStage scores every final prompt concurrently.
type AssessmentStage struct {
	deps   Deps
	logger *slog.Logger
}

// NewAssessmentStage constructs the assessment stage.
func NewAssessmentStage(d Deps) *AssessmentStage {
	return &AssessmentStage{deps: d, logger: d.logger("assessment")}
}

// Name returns the stage name.
func (s *AssessmentStage) Name() string { return stage.Assessment }

// Execute scores each prompt with the model and measures lexical alignment
// with the brief. Failed items receive FallbackScore.
func (s *AssessmentStage) Execute(ctx context.Context, rc *pipeline.Context) error {
	prompts, err := stage.RequireSlot(stage.Assessment, pipeline.SlotFinalPrompts, &rc.FinalPrompts)
	if err != nil {
		return failSlot(&rc.Assessments, err)
	}
	briefPrint := textutil.NewFingerprint(rc.Inputs.Brief)
	brief := describeBrief(rc.Inputs)

	op := func(ctx context.Context, index int, p pipeline.FinalPrompt) (pipeline.Assessment, pipeline.Usage, error) {
		reply, usage, err := complete[assessmentReply](ctx, s.deps, stage.Assessment, []llm.Message{
			llm.System(assessmentSystemPrompt),
			llm.User(brief + "Image prompt: " + p.Prompt),
		}, pipeline.MinCreativity, llmjson.WithFallback(clampScore))
		if err != nil {
			return pipeline.Assessment{}, usage, err
		}
		return pipeline.Assessment{
			PromptIndex:  index,
			ConceptTitle: p.ConceptTitle,
			Score:        reply.Score,
			Alignment:    alignment(briefPrint, p.Prompt),
			Notes:        reply.Notes,
		}, usage, nil
	}
	result := fanout.RunAll(ctx, prompts, op, fanout.Options[pipeline.Assessment]{
		Fallback: func(index int, err error) pipeline.Assessment {
			return pipeline.Assessment{
				PromptIndex:  index,
				ConceptTitle: prompts[index].ConceptTitle,
				Score:        FallbackScore,
				Alignment:    alignment(briefPrint, prompts[index].Prompt),
				Notes:        "assessment unavailable: " + errorText(err),
				IsFallback:   true,
			}
		},
		FallbackUsage:  s.deps.FallbackUsage,
		MaxConcurrency: s.deps.MaxConcurrency,
		Stage:          stage.Assessment,
		Logger:         s.logger,
	})
	chargeResult(ctx, s.deps, rc, stage.Assessment, result)

	assessments := result.Values()
	if err := rc.Assessments.Set(assessments); err != nil {
		return err
	}
	rc.Logf("assessment: scored %d prompts (%d fallback)", len(assessments), result.Fallbacks())
	logging.WithContext(ctx, s.logger).Info(
		"prompts assessed",
		logging.String(logging.FieldEventType, "prompts_assessed"),
		logging.Int("count", len(assessments)),
		logging.Int("fallbacks", result.Fallbacks()),
		logging.Float64("mean_score", meanScore(assessments)),
	)
	return nil
}

// HealthCheck verifies the stage model responds.
func (s *AssessmentStage) HealthCheck(ctx context.Context) stage.Health {
	return llmHealth(ctx, s.deps, stage.Assessment)
}

func alignment(brief *textutil.Fingerprint, prompt string) float64 {
	score := textutil.Similarity(brief, textutil.NewFingerprint(prompt))
	return math.Round(score*1000) / 1000
}

func meanScore(assessments []pipeline.Assessment) float64 {
	if len(assessments) == 0 {
		return 0
	}
	var sum float64
	for _, a := range assessments {
		sum += a.Score
	}
	return sum / float64(len(assessments))
}
