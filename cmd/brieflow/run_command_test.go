package main

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"brieflow/internal/pipeline"
)

func decodeRunOutput(t *testing.T, out string) runOutput {
	t.Helper()
	var result runOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode run output: %v\n%s", err, out)
	}
	return result
}

func TestRunCommandRecordsRun(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "launch a cozy latte brand", "--platform", "instagram_story", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	result := decodeRunOutput(t, out)
	if result.Status != pipeline.RunCompleted {
		t.Fatalf("expected completed run, got %s (%s)", result.Status, result.Error)
	}
	if len(result.FinalPrompts) != 2 || len(result.Assessments) != 2 {
		t.Fatalf("unexpected outputs: %d prompts, %d assessments", len(result.FinalPrompts), len(result.Assessments))
	}
	if result.TotalUsage.Calls != 7 || result.TotalUsage.TotalTokens != 105 {
		t.Fatalf("unexpected total usage %+v", result.TotalUsage)
	}
	if got := env.calls.Load(); got != 7 {
		t.Fatalf("expected 7 model calls, got %d", got)
	}

	out, _, err = runCLI(t, []string{"runs", "list"}, env.configPath, "")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, result.RunID)
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, []string{"runs", "show", result.RunID, "--logs"}, env.configPath, "")
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, "== Prompts ==")
	requireContains(t, out, "Cozy scene")
	requireContains(t, out, "Creative Expert")
	requireContains(t, out, "== Log ==")
}

func TestRunCommandPrintsSummary(t *testing.T) {
	env := setupCLITestEnv(t)

	out, stderr, err := runCLI(t, []string{"run", "launch a cozy latte brand", "--no-record"}, env.configPath, "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "[OK] completed")
	requireContains(t, out, "(score 8.0)")
	requireContains(t, out, "Total")
	requireContains(t, stderr, "Style Guide:")

	out, _, err = runCLI(t, []string{"runs", "list"}, env.configPath, "")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestRunCommandReadsBriefFromStdin(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "--brief-file", "-", "--creativity", "1", "--json"}, env.configPath, "launch a cozy latte brand\n")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result := decodeRunOutput(t, out); result.Status != pipeline.RunCompleted {
		t.Fatalf("expected completed run, got %s", result.Status)
	}

	if _, _, err := runCLI(t, []string{"run", "inline brief", "--brief-file", "-"}, env.configPath, "stdin brief"); err == nil {
		t.Fatal("expected an error when the brief is given twice")
	}
}

func TestRunCommandValidatesInputs(t *testing.T) {
	env := setupCLITestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing brief", args: []string{"run"}, want: "brief is required"},
		{name: "creativity out of range", args: []string{"run", "a brief", "--creativity", "5"}, want: "creativity must be between"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args, env.configPath, "")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
	if got := env.calls.Load(); got != 0 {
		t.Fatalf("invalid inputs must not reach the model, got %d calls", got)
	}
}

func TestRunCommandRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t, withAPIKey(""))

	_, _, err := runCLI(t, []string{"run", "a brief"}, env.configPath, "")
	if err == nil || !strings.Contains(err.Error(), "api key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestRunCommandFailsWhenStrategyFails(t *testing.T) {
	env := setupCLITestEnv(t, withLLMHandler(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	out, _, err := runCLI(t, []string{"run", "a brief", "--json"}, env.configPath, "")
	if err == nil {
		t.Fatal("expected failed run to return an error")
	}
	result := decodeRunOutput(t, out)
	if result.Status != pipeline.RunFailed {
		t.Fatalf("expected failed status, got %s", result.Status)
	}
	if got := env.calls.Load(); got != 1 {
		t.Fatalf("permanent strategy failure should stop after one call, got %d", got)
	}
	if len(result.Stages) == 0 || result.Stages[0].State != pipeline.StageFailed {
		t.Fatalf("expected failed strategy record, got %+v", result.Stages)
	}
}

func TestRunCommandAppliesBrandKitOverride(t *testing.T) {
	env := setupCLITestEnv(t)
	kitPath := filepath.Join(env.baseDir, "kit.yaml")
	if err := os.WriteFile(kitPath, []byte("name: Acme\ncolors: [\"#112233\"]\n"), 0o644); err != nil {
		t.Fatalf("write brand kit: %v", err)
	}

	out, _, err := runCLI(t, []string{"run", "launch a cozy latte brand", "--brand-kit", kitPath, "--include-text", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	result := decodeRunOutput(t, out)
	if len(result.FinalPrompts) == 0 {
		t.Fatal("expected prompts")
	}
	if strings.Contains(result.FinalPrompts[0].NegativePrompt, "lettering") {
		t.Fatalf("include_text should keep text out of the negative prompt, got %q", result.FinalPrompts[0].NegativePrompt)
	}
}
