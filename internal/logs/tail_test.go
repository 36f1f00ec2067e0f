package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"brieflow/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brieflow.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, result.Lines); diff != "" {
		t.Fatalf("unexpected lines (-want +got):\n%s", diff)
	}
	if result.Offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("expected offset at end of file, got %d", result.Offset)
	}
}

func TestTailFiltersByContains(t *testing.T) {
	path := writeLog(t, "run_id=one start\nrun_id=two start\nrun_id=one done\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10, Contains: "run_id=one"})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"run_id=one start", "run_id=one done"}, result.Lines); diff != "" {
		t.Fatalf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestTailFromOffsetLeavesPartialLine(t *testing.T) {
	path := writeLog(t, "first\nsecond\npartial")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: int64(len("first\n"))})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"second"}, result.Lines); diff != "" {
		t.Fatalf("unexpected lines (-want +got):\n%s", diff)
	}
	if result.Offset != int64(len("first\nsecond\n")) {
		t.Fatalf("expected offset before partial line, got %d", result.Offset)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "missing.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := writeLog(t, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected initial line, got %#v", result.Lines)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Errorf("unexpected follow lines: %#v", res.Lines)
		}
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func TestFormatRendersJSONRecords(t *testing.T) {
	line := `{"ts":"2026-03-01T10:00:00Z","level":"warn","msg":"stage failed","component":"workflow","stage":"strategy","calls":3,"fallback":true}`
	got := logs.Format(line)

	for _, want := range []string{"WARN workflow: stage failed", "calls=3", "fallback=true", "stage=strategy"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "ts=") || strings.Contains(got, "msg=") {
		t.Fatalf("expected reserved keys to be consumed, got %q", got)
	}
	if strings.Index(got, "calls=") > strings.Index(got, "stage=") {
		t.Fatalf("expected sorted attributes, got %q", got)
	}
}

func TestFormatPassesThroughConsoleLines(t *testing.T) {
	line := "2026-03-01 10:00:00 INFO workflow: run started"
	if got := logs.Format(line); got != line {
		t.Fatalf("expected console line unchanged, got %q", got)
	}
}
