package cost

import (
	"errors"
	"math"
	"testing"

	"brieflow/internal/config"
	"brieflow/internal/pipeline"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCalculatorCost(t *testing.T) {
	calc := NewCalculator(NewCatalogWithModels([]Model{{ID: "demo/model", InputPer1M: 2, OutputPer1M: 8}}))

	tests := []struct {
		name    string
		usage   pipeline.Usage
		want    float64
		wantErr error
	}{
		{name: "zero tokens", usage: pipeline.Usage{ModelID: "demo/model"}, want: 0},
		{name: "split pricing", usage: pipeline.Usage{PromptTokens: 1_000_000, CompletionTokens: 500_000, ModelID: "demo/model"}, want: 6},
		{name: "case insensitive", usage: pipeline.Usage{PromptTokens: 500_000, ModelID: " Demo/Model "}, want: 1},
		{name: "unknown model", usage: pipeline.Usage{PromptTokens: 10, ModelID: "other"}, wantErr: ErrModelUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Cost(tt.usage)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Cost returned error: %v", err)
			}
			if !almostEqual(got, tt.want) {
				t.Fatalf("Cost = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculatorRecordKeepsUsageOnUnknownModel(t *testing.T) {
	calc := NewCalculator(nil)
	rec, err := calc.Record(pipeline.Usage{PromptTokens: 500, CompletionTokens: 500, ModelID: "mystery"}, true)
	if !errors.Is(err, ErrModelUnknown) {
		t.Fatalf("expected unknown model error, got %v", err)
	}
	if rec.TotalTokens != 1000 || !rec.IsFallback || rec.CostUSD != 0 || rec.Calls != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestCatalogFromConfigOverrides(t *testing.T) {
	catalog, err := CatalogFromConfig(config.Cost{Models: map[string]config.ModelPrice{
		"google/gemini-3-flash-preview": {InputPer1M: 9, OutputPer1M: 9},
		"custom/model":                  {InputPer1M: 1, OutputPer1M: 2},
	}})
	if err != nil {
		t.Fatalf("CatalogFromConfig returned error: %v", err)
	}
	if m, ok := catalog.Get("google/gemini-3-flash-preview"); !ok || m.InputPer1M != 9 {
		t.Fatalf("expected override, got %+v %v", m, ok)
	}
	if _, ok := catalog.Get("custom/model"); !ok {
		t.Fatal("expected custom model to be added")
	}
	if len(catalog.List()) != len(DefaultModels)+1 {
		t.Fatalf("unexpected catalog size %d", len(catalog.List()))
	}
}

func TestCatalogRejectsInvalidEntries(t *testing.T) {
	c := NewCatalog()
	if err := c.Set(Model{ID: " "}); err == nil {
		t.Fatal("expected error for empty id")
	}
	if err := c.Set(Model{ID: "x", InputPer1M: -1}); err == nil {
		t.Fatal("expected error for negative price")
	}
}
