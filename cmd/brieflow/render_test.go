package main

import (
	"strings"
	"testing"

	"brieflow/internal/config"
	"brieflow/internal/pipeline"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Name", "Count"}, [][]string{{"alpha", "1"}, {"beta"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"Name", "alpha", "beta"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestUsageRowsOrderAndTotal(t *testing.T) {
	usage := map[string]pipeline.UsageRecord{
		"assessment": {PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, Calls: 1, IsFallback: true},
		"strategy":   {PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30, Calls: 1, ModelID: "demo/model"},
	}
	rows := usageRows(usage, []string{"strategy", "assessment"})
	if len(rows) != 3 {
		t.Fatalf("expected two stages and a total, got %d rows", len(rows))
	}
	if rows[0][0] != "Strategy" || rows[1][0] != "Assessment" {
		t.Fatalf("unexpected order %v", rows)
	}
	total := rows[2]
	if total[0] != "Total" || total[5] != "45" || total[7] != "yes" {
		t.Fatalf("unexpected total row %v", total)
	}
}

func TestRenderStageLines(t *testing.T) {
	lines := renderStageLines([]pipeline.StageRecord{
		{Name: "creative_expert", State: pipeline.StageFailed, Error: "no concepts"},
		{Name: "strategy", State: pipeline.StageSkipped, Reason: "recipe preset"},
	}, false)
	if !strings.Contains(lines[0], "Creative Expert:") || !strings.Contains(lines[0], "[ERROR] failed: no concepts") {
		t.Fatalf("unexpected failed line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN] skipped: recipe preset") {
		t.Fatalf("unexpected skipped line %q", lines[1])
	}
}

func TestConfiguredModelsDeduplicates(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Model = "base/model"
	cfg.LLM.StageModels = map[string]string{"creative_expert": "big/model", "assessment": "base/model"}

	got := configuredModels(&cfg)
	if len(got) != 2 || got[0] != "base/model" || got[1] != "big/model" {
		t.Fatalf("unexpected models %v", got)
	}
}
