package llmjson

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"brieflow/internal/services"
)

func TestExtractFencedBlockAmidCommentary(t *testing.T) {
	raw := "Here you go!\n```json\n{\"a\": [1, 2], \"b\": \"x\"}\n```\nLet me know if you need more."
	res, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if res.Strategy != StrategyFenced {
		t.Fatalf("expected fenced strategy, got %s", res.Strategy)
	}
	want := map[string]any{"a": []any{1.0, 2.0}, "b": "x"}
	if !reflect.DeepEqual(res.Value, want) {
		t.Fatalf("unexpected value: %#v", res.Value)
	}
}

func TestExtractPrefersJSONTaggedFence(t *testing.T) {
	raw := "```text\n[\"not\", \"this\"]\n```\nand\n```json\n{\"pick\": true}\n```"
	res, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if res.JSON != `{"pick": true}` {
		t.Fatalf("expected json-tagged block, got %q", res.JSON)
	}
}

func TestExtractTrailingContentKeepsValidPrefix(t *testing.T) {
	res, err := Extract(`{"a":1} extra text`)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if res.Strategy != StrategyDirectPrefix {
		t.Fatalf("expected direct_prefix strategy, got %s", res.Strategy)
	}
	if res.JSON != `{"a":1}` {
		t.Fatalf("expected prefix %q, got %q", `{"a":1}`, res.JSON)
	}
	if !reflect.DeepEqual(res.Value, map[string]any{"a": 1.0}) {
		t.Fatalf("unexpected value: %#v", res.Value)
	}
}

func TestExtractDirect(t *testing.T) {
	res, err := Extract(`  [{"id": 1}]  `)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if res.Strategy != StrategyDirect || res.Repaired {
		t.Fatalf("expected clean direct parse, got %+v", res)
	}
}

func TestExtractBracketMatching(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "object inside prose",
			raw:  `The result is {"title": "x", "tags": ["a"]} as requested.`,
			want: `{"title": "x", "tags": ["a"]}`,
		},
		{
			name: "array enclosing objects",
			raw:  `Items: [{"a":1},{"a":2}] done`,
			want: `[{"a":1},{"a":2}]`,
		},
		{
			name: "braces inside strings",
			raw:  `Output {"text": "use } and { freely"} end`,
			want: `{"text": "use } and { freely"}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Extract(tc.raw)
			if err != nil {
				t.Fatalf("Extract returned error: %v", err)
			}
			if res.Strategy != StrategyBracket {
				t.Fatalf("expected bracket strategy, got %s", res.Strategy)
			}
			if res.JSON != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, res.JSON)
			}
		})
	}
}

func TestExtractRepairsSingleQuotesAndTrailingCommas(t *testing.T) {
	res, err := Extract(`{'title': 'Sunset', 'tags': ['warm', 'calm'],}`)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if res.Strategy != StrategyRepair || !res.Repaired {
		t.Fatalf("expected repaired result, got %+v", res)
	}
	if !reflect.DeepEqual(res.Repairs, []string{"single_quotes", "trailing_commas"}) {
		t.Fatalf("unexpected repairs: %v", res.Repairs)
	}
	want := map[string]any{"title": "Sunset", "tags": []any{"warm", "calm"}}
	if !reflect.DeepEqual(res.Value, want) {
		t.Fatalf("unexpected value: %#v", res.Value)
	}
}

func TestExtractRepairsUnquotedKeysAndBareValues(t *testing.T) {
	res, err := Extract(`{title: Sunset Glow, score: 7, live: True}`)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	want := map[string]any{"title": "Sunset Glow", "score": 7.0, "live": true}
	if !reflect.DeepEqual(res.Value, want) {
		t.Fatalf("unexpected value: %#v", res.Value)
	}
}

func TestIsTruncated(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{`"key": "value`, true},
		{`{"key":"value"}`, false},
		{`{"a":1,`, true},
		{`{"items": [`, true},
		{`{"a": 1, "b"`, true},
		{`{"a":`, true},
		{`{"a": {"b": 1}`, true},
		{"```json\n{\"a\": \"long", true},
		{"```json\n{\"a\": 1}", false},
		{"```json\n{\"a\": 1}\n```\nThat is all,", false},
		{"plain prose answer.", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsTruncated(tc.text); got != tc.want {
			t.Errorf("IsTruncated(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestExtractReportsTruncation(t *testing.T) {
	_, err := Extract("```json\n{\"strategies\": [{\"name\": \"Bold")
	if !errors.Is(err, services.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestExtractReclassifiesTruncationAfterPreprocess(t *testing.T) {
	_, err := Extract("Sure! Here's the data:\n{\"a\": 1, \"b\": [1, 2")
	if !errors.Is(err, services.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestExtractUnclosedFenceWithCompleteBody(t *testing.T) {
	res, err := Extract("```json\n{\"a\": 1}")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if !reflect.DeepEqual(res.Value, map[string]any{"a": 1.0}) {
		t.Fatalf("unexpected value: %#v", res.Value)
	}
}

func TestExtractFailureCarriesPreview(t *testing.T) {
	raw := "I cannot help with that request. " + strings.Repeat("x", 400)
	_, err := Extract(raw)
	if !errors.Is(err, services.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if errors.Is(err, services.ErrTruncated) {
		t.Fatalf("prose must not be reported as truncated: %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "I cannot help") {
		t.Fatalf("expected preview in error, got %q", msg)
	}
	if strings.Contains(msg, strings.Repeat("x", 300)) {
		t.Fatalf("preview should be bounded, got %d bytes", len(msg))
	}
}

func TestExtractEmpty(t *testing.T) {
	if _, err := Extract("   \n"); !errors.Is(err, services.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestPreprocessStripsFiller(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sure! Here's the JSON:\n{\"a\":1}", `{"a":1}`},
		{"Here is the result: [1]", `[1]`},
		{"I'll generate the concepts now.\n{\"a\":1}", `{"a":1}`},
		{"{\"a\":1}\n\nHope this helps!", `{"a":1}`},
		{"{\"a\":1}\n```", `{"a":1}`},
		{"{\"keep\": \"Sure thing\"}", `{"keep": "Sure thing"}`},
	}
	for _, tc := range tests {
		if got := Preprocess(tc.in); got != tc.want {
			t.Errorf("Preprocess(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDecode(t *testing.T) {
	var out struct {
		Title string `json:"title"`
	}
	if err := Decode("Result:\n```json\n{\"title\": \"Dawn\"}\n```", &out); err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if out.Title != "Dawn" {
		t.Fatalf("unexpected title %q", out.Title)
	}
}
