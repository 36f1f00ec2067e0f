package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSlotLifecycle(t *testing.T) {
	var s Slot[[]Strategy]
	if _, ok := s.Get(); ok {
		t.Fatal("new slot should be absent")
	}
	if err := s.Set([]Strategy{{Name: "Bold"}}); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Set(nil); !errors.Is(err, ErrSlotAlreadySet) {
		t.Fatalf("expected ErrSlotAlreadySet, got %v", err)
	}
	if err := s.Fail("late"); !errors.Is(err, ErrSlotAlreadySet) {
		t.Fatalf("expected ErrSlotAlreadySet on fail, got %v", err)
	}
	got, ok := s.Get()
	if !ok || len(got) != 1 || got[0].Name != "Bold" {
		t.Fatalf("unexpected slot value %+v %v", got, ok)
	}
}

func TestSlotFailedReadsAbsent(t *testing.T) {
	var s Slot[[]VisualConcept]
	if err := s.Fail("upstream missing"); err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}
	if _, ok := s.Get(); ok {
		t.Fatal("failed slot should read as absent")
	}
	if s.State() != SlotFailed || s.Reason() != "upstream missing" {
		t.Fatalf("unexpected state %s reason %q", s.State(), s.Reason())
	}
}

func TestRecordUsageMerges(t *testing.T) {
	rc := New(Inputs{Brief: "b", Creativity: 2})
	rc.RecordUsage("strategy", NewUsageRecord(Usage{PromptTokens: 10, CompletionTokens: 5, ModelID: "m"}, 0.01, false))
	rc.RecordUsage("strategy", NewUsageRecord(Usage{PromptTokens: 1, CompletionTokens: 2}, 0.02, true))
	rc.RecordUsage("assessment", NewUsageRecord(Usage{PromptTokens: 3}, 0, false))

	rec := rc.Usage()["strategy"]
	if rec.PromptTokens != 11 || rec.CompletionTokens != 7 || rec.TotalTokens != 18 || rec.Calls != 2 {
		t.Fatalf("unexpected merged record: %+v", rec)
	}
	if rec.ModelID != "m" || !rec.IsFallback {
		t.Fatalf("expected model and fallback flag to carry: %+v", rec)
	}
	if total := rc.TotalUsage(); total.TotalTokens != 21 || total.Calls != 3 {
		t.Fatalf("unexpected total: %+v", total)
	}
}

func TestConcurrentLogsAndUsage(t *testing.T) {
	rc := New(Inputs{Brief: "b", Creativity: 1})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rc.Logf("item %d", i)
			rc.RecordUsage("assessment", NewUsageRecord(Usage{PromptTokens: 1}, 0, false))
		}(i)
	}
	wg.Wait()
	if len(rc.Logs()) != 20 {
		t.Fatalf("expected 20 log lines, got %d", len(rc.Logs()))
	}
	if rc.Usage()["assessment"].Calls != 20 {
		t.Fatalf("expected 20 calls, got %+v", rc.Usage()["assessment"])
	}
}

func TestLogfTimestamps(t *testing.T) {
	rc := New(Inputs{Brief: "b", Creativity: 1})
	rc.SetClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) })
	rc.Logf("hello %s", "world")
	logs := rc.Logs()
	if len(logs) != 1 || logs[0] != "2026-01-02T03:04:05Z hello world" {
		t.Fatalf("unexpected logs %q", logs)
	}
}

func TestInputsValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      Inputs
		wantErr bool
	}{
		{"ok", Inputs{Brief: "coffee", Creativity: 2}, false},
		{"missing brief", Inputs{Creativity: 2}, true},
		{"creativity low", Inputs{Brief: "x", Creativity: 0}, true},
		{"creativity high", Inputs{Brief: "x", Creativity: 4}, true},
		{"regional language", Inputs{Brief: "x", Creativity: 1, Language: "pt-BR"}, false},
		{"unknown language", Inputs{Brief: "x", Creativity: 1, Language: "not a language"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.in.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestMustProduce(t *testing.T) {
	check, err := MustProduce(SlotFinalPrompts)
	if err != nil {
		t.Fatalf("MustProduce returned error: %v", err)
	}
	rc := New(Inputs{Brief: "b", Creativity: 1})
	if check(rc) {
		t.Fatal("expected absent final prompts")
	}
	_ = rc.FinalPrompts.Set([]FinalPrompt{{Prompt: "p"}})
	if !check(rc) {
		t.Fatal("expected present final prompts")
	}
	if _, err := MustProduce("posters"); err == nil {
		t.Fatal("expected error for unknown slot")
	}
}

func TestSkipSet(t *testing.T) {
	rc := New(Inputs{Brief: "b", Creativity: 1})
	rc.Skip("strategy", "style_guide")
	if !rc.ShouldSkip("strategy") || rc.ShouldSkip("assessment") {
		t.Fatalf("unexpected skip set %v", rc.SkipStages)
	}
	if rc.RunID == "" || rc.Status != RunPending {
		t.Fatalf("unexpected new context %+v", rc)
	}
}
