package main

import (
	"net/http"
	"strings"
	"testing"
)

func TestStatusCommandReportsStagesAndLastRun(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath, "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Stages ==")
	requireContains(t, out, "Strategy:")
	requireContains(t, out, "[OK] ready (demo/model)")
	requireContains(t, out, "none recorded")

	calls := env.calls.Load()
	if _, _, err := runCLI(t, []string{"run", "launch a cozy latte brand", "--json"}, env.configPath, ""); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, _, err = runCLI(t, []string{"status"}, env.configPath, "")
	if err != nil {
		t.Fatalf("status after run: %v", err)
	}
	requireContains(t, out, "[OK] completed")
	requireContains(t, out, "launch a cozy latte brand")
	if calls == 0 {
		t.Fatal("expected health checks to reach the model")
	}
}

func TestStatusCommandFailsOnUnhealthyStages(t *testing.T) {
	env := setupCLITestEnv(t, withLLMHandler(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model not found"}}`, http.StatusNotFound)
	}))

	out, _, err := runCLI(t, []string{"status"}, env.configPath, "")
	if err == nil || !strings.Contains(err.Error(), "not ready") {
		t.Fatalf("expected not ready error, got %v", err)
	}
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "[OK] ready")
}
