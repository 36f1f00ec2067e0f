package llmjson

import (
	"encoding/json"
	"strings"
)

// Strategy names the extraction step that produced a value.
type Strategy string

const (
	StrategyFenced       Strategy = "fenced"
	StrategyDirect       Strategy = "direct"
	StrategyDirectPrefix Strategy = "direct_prefix"
	StrategyBracket      Strategy = "bracket"
	StrategyRepair       Strategy = "repair"
)

// structuredTags are fence languages that announce JSON content.
var structuredTags = map[string]bool{
	"json":       true,
	"json5":      true,
	"jsonc":      true,
	"javascript": true,
	"js":         true,
}

func strictParse(text string) (any, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return v, true
}

// fencedBodies returns fenced block bodies, structured tags first, in
// document order within each group.
func fencedBodies(text string) []string {
	matches := fenceBlockPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	preferred := make([]string, 0, len(matches))
	rest := make([]string, 0, len(matches))
	for _, m := range matches {
		body := strings.TrimSpace(m[2])
		if body == "" {
			continue
		}
		if structuredTags[strings.ToLower(m[1])] {
			preferred = append(preferred, body)
		} else {
			rest = append(rest, body)
		}
	}
	return append(preferred, rest...)
}

func fromFence(text string) (Result, bool) {
	for _, body := range fencedBodies(text) {
		if v, ok := strictParse(body); ok {
			return Result{Value: v, JSON: body, Strategy: StrategyFenced}, true
		}
	}
	return Result{}, false
}

func fromDirect(text string) (Result, bool) {
	if v, ok := strictParse(text); ok {
		return Result{Value: v, JSON: text, Strategy: StrategyDirect}, true
	}
	if text == "" || (text[0] != '{' && text[0] != '[') {
		return Result{}, false
	}
	dec := json.NewDecoder(strings.NewReader(text))
	var first any
	if err := dec.Decode(&first); err != nil {
		return Result{}, false
	}
	prefix := strings.TrimSpace(text[:dec.InputOffset()])
	if v, ok := strictParse(prefix); ok {
		return Result{Value: v, JSON: prefix, Strategy: StrategyDirectPrefix}, true
	}
	return Result{}, false
}

// bracketSpans lists candidate spans for bracket matching in preference
// order: balanced object or array first, then first opener to last closer.
func bracketSpans(text string) []string {
	type span struct{ start, end int }
	find := func(open, close byte) (balanced, wide span, ok bool) {
		start := strings.IndexByte(text, open)
		if start < 0 {
			return span{}, span{}, false
		}
		end := matchingClose(text, start)
		last := strings.LastIndexByte(text, close)
		balanced = span{start, end}
		wide = span{start, last}
		return balanced, wide, end > start || last > start
	}
	objBal, objWide, objOK := find('{', '}')
	arrBal, arrWide, arrOK := find('[', ']')

	arrayFirst := false
	if arrOK && objOK && arrBal.end > 0 && objBal.end > 0 {
		arrayFirst = arrBal.start < objBal.start && arrBal.end > objBal.end
	} else if arrOK && !objOK {
		arrayFirst = true
	}

	var ordered []span
	if arrayFirst {
		ordered = []span{arrBal, arrWide, objBal, objWide}
	} else {
		ordered = []span{objBal, objWide, arrBal, arrWide}
	}
	seen := make(map[span]bool, len(ordered))
	out := make([]string, 0, len(ordered))
	for _, s := range ordered {
		if s.end <= s.start || s.start < 0 || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, text[s.start:s.end+1])
	}
	return out
}

func fromBrackets(text string) (Result, bool) {
	for _, candidate := range bracketSpans(text) {
		if v, ok := strictParse(candidate); ok {
			return Result{Value: v, JSON: candidate, Strategy: StrategyBracket}, true
		}
	}
	return Result{}, false
}
