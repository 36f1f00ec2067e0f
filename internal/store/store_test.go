package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"brieflow/internal/pipeline"
	"brieflow/internal/preset"
	"brieflow/internal/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenPath(context.Background(), filepath.Join(t.TempDir(), "brieflow.db"))
	if err != nil {
		t.Fatalf("OpenPath returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func finishedRun(t *testing.T, created time.Time) *pipeline.Context {
	t.Helper()
	rc := pipeline.New(pipeline.Inputs{Brief: "launch a tea brand", Platform: "instagram_post", Creativity: 2})
	rc.SetClock(func() time.Time { return created })
	rc.CreatedAt = created
	rc.Status = pipeline.RunCompleted
	rc.Logf("strategy produced %d angles", 2)
	rc.StageRecords = []pipeline.StageRecord{
		{Name: "strategy", State: pipeline.StageCompleted, StartedAt: created, FinishedAt: created.Add(2 * time.Second), Duration: 2 * time.Second},
		{Name: "style_guide", State: pipeline.StageSkipped, Reason: "preset recipe"},
		{Name: "prompt_assembly", State: pipeline.StageFailed, Error: "stage failure: boom"},
	}
	rc.RecordUsage("strategy", pipeline.UsageRecord{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, ModelID: "demo", CostUSD: 0.01, Calls: 1})
	rc.RecordUsage("assessment", pipeline.UsageRecord{PromptTokens: 500, CompletionTokens: 500, TotalTokens: 1000, IsFallback: true, Calls: 1})
	if err := rc.FinalPrompts.Set([]pipeline.FinalPrompt{{ConceptTitle: "Steam", Prompt: "a cup of tea"}}); err != nil {
		t.Fatalf("set final prompts: %v", err)
	}
	return rc
}

func TestOpenPathReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brieflow.db")
	first, err := OpenPath(context.Background(), path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := OpenPath(context.Background(), path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()
	if second.Path() != path {
		t.Fatalf("unexpected path %q", second.Path())
	}
}

func TestRecordRunRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rc := finishedRun(t, created)

	if err := s.RecordRun(ctx, rc); err != nil {
		t.Fatalf("RecordRun returned error: %v", err)
	}
	detail, err := s.GetRun(ctx, rc.RunID)
	if err != nil {
		t.Fatalf("GetRun returned error: %v", err)
	}
	if detail.Status != pipeline.RunCompleted || detail.Brief != "launch a tea brand" || detail.Platform != "instagram_post" {
		t.Fatalf("unexpected run %+v", detail.Run)
	}
	if !detail.CreatedAt.Equal(created) {
		t.Fatalf("unexpected created_at %s", detail.CreatedAt)
	}
	if detail.TotalTokens != 1150 {
		t.Fatalf("expected total tokens 1150, got %d", detail.TotalTokens)
	}
	if len(detail.Stages) != 3 || detail.Stages[1].State != pipeline.StageSkipped || detail.Stages[1].Reason != "preset recipe" {
		t.Fatalf("unexpected stages %+v", detail.Stages)
	}
	if detail.Stages[0].Duration != 2*time.Second || detail.Stages[2].Error != "stage failure: boom" {
		t.Fatalf("unexpected stage details %+v", detail.Stages)
	}
	if len(detail.Usage) != 2 || detail.Usage[0].Stage != "assessment" || !detail.Usage[0].IsFallback {
		t.Fatalf("unexpected usage %+v", detail.Usage)
	}
	if _, ok := detail.Outputs[pipeline.SlotFinalPrompts]; !ok {
		t.Fatalf("expected final prompts in outputs, got %v", detail.Outputs)
	}
	if _, ok := detail.Outputs[pipeline.SlotStrategies]; ok {
		t.Fatal("absent slots should not be persisted")
	}
	if len(detail.Logs) != 1 {
		t.Fatalf("expected one log line, got %v", detail.Logs)
	}
}

func TestRecordRunReplacesPreviousCopy(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rc := finishedRun(t, time.Now().UTC())
	if err := s.RecordRun(ctx, rc); err != nil {
		t.Fatalf("first RecordRun: %v", err)
	}
	rc.Status = pipeline.RunFailed
	rc.ErrorMessage = "required output final_prompts was not produced"
	rc.StageRecords = rc.StageRecords[:1]
	if err := s.RecordRun(ctx, rc); err != nil {
		t.Fatalf("second RecordRun: %v", err)
	}
	detail, err := s.GetRun(ctx, rc.RunID)
	if err != nil {
		t.Fatalf("GetRun returned error: %v", err)
	}
	if detail.Status != pipeline.RunFailed || detail.ErrorMessage == "" || len(detail.Stages) != 1 {
		t.Fatalf("expected replaced run, got %+v stages=%d", detail.Run, len(detail.Stages))
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 3 {
		rc := finishedRun(t, base.Add(time.Duration(i)*time.Hour))
		ids = append(ids, rc.RunID)
		if err := s.RecordRun(ctx, rc); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}
	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns returned error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("unexpected runs order %+v", runs)
	}
	all, err := s.ListRuns(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all runs, got %d (%v)", len(all), err)
	}
}

func TestGetRunMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetRun(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func samplePreset() preset.Preset {
	return preset.Preset{
		Name: "Spring launch",
		Kind: preset.KindTemplate,
		Payload: preset.Payload{
			Brief:      "spring collection",
			Creativity: 3,
			Flags:      map[string]bool{"include_text": true},
		},
	}
}

func TestPresetSaveGetList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved, err := s.SavePreset(ctx, samplePreset())
	if err != nil {
		t.Fatalf("SavePreset returned error: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at to be assigned, got %+v", saved)
	}

	byID, err := s.GetPreset(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetPreset by id: %v", err)
	}
	if byID.Payload.Brief != "spring collection" || !byID.Payload.Flags["include_text"] {
		t.Fatalf("unexpected payload %+v", byID.Payload)
	}
	byName, err := s.GetPreset(ctx, "Spring launch")
	if err != nil || byName.ID != saved.ID {
		t.Fatalf("GetPreset by name = %+v, %v", byName, err)
	}

	saved.Payload.Brief = "summer collection"
	if _, err := s.SavePreset(ctx, saved); err != nil {
		t.Fatalf("update preset: %v", err)
	}
	list, err := s.ListPresets(ctx)
	if err != nil {
		t.Fatalf("ListPresets returned error: %v", err)
	}
	if len(list) != 1 || list[0].Payload.Brief != "summer collection" {
		t.Fatalf("unexpected presets %+v", list)
	}
}

func TestPresetErrors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.SavePreset(ctx, samplePreset()); err != nil {
		t.Fatalf("SavePreset returned error: %v", err)
	}
	if _, err := s.SavePreset(ctx, samplePreset()); !errors.Is(err, ErrDuplicatePreset) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
	invalid := preset.Preset{Name: "broken", Kind: preset.KindRecipe}
	if _, err := s.SavePreset(ctx, invalid); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := s.GetPreset(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeletePreset(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
}

func TestPresetLoadThroughStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	saved, err := s.SavePreset(ctx, preset.Preset{
		Name: "Cafe recipe",
		Kind: preset.KindRecipe,
		Payload: preset.Payload{
			Brief:    "latte art",
			Concepts: []pipeline.VisualConcept{{Title: "Foam", Description: "rosetta pattern"}},
		},
	})
	if err != nil {
		t.Fatalf("SavePreset returned error: %v", err)
	}
	rc := pipeline.New(pipeline.Inputs{Creativity: 2})
	if _, err := preset.Load(ctx, s, saved.ID, rc, preset.Overrides{}); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !rc.Concepts.Present() || !rc.ShouldSkip("creative_expert") || rc.PresetID != saved.ID {
		t.Fatalf("expected recipe to be applied, got skips=%v preset=%q", rc.SkipStages, rc.PresetID)
	}
}
