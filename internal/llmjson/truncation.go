package llmjson

import (
	"encoding/json"
	"regexp"
	"strings"
)

const fence = "```"

var (
	danglingKeyPattern = regexp.MustCompile(`[,{]\s*"[^"\\]*"\s*$`)
	fenceBlockPattern  = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z][A-Za-z0-9_+-]*)?[ \\t]*\\r?\\n?(.*?)```")
)

// IsTruncated reports whether text looks like model output that was cut off
// before the structured value finished.
func IsTruncated(text string) bool {
	_, truncated := truncationReason(text)
	return truncated
}

func truncationReason(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", false
	}
	if hasCompleteFencedValue(t) {
		return "", false
	}
	if strings.Count(t, fence)%2 == 1 {
		if interior, opened := unclosedFenceInterior(t); opened {
			if json.Valid([]byte(strings.TrimSpace(interior))) {
				return "", false
			}
			return "fenced block opened but never closed", true
		}
	}
	switch t[len(t)-1] {
	case ',':
		return "ends after a comma", true
	case '{', '[':
		return "ends after an opening bracket", true
	case ':':
		return "ends in the middle of a key-value pair", true
	}
	if danglingKeyPattern.MatchString(t) {
		return "ends on a key without a value", true
	}
	scanFrom := firstOpener(t)
	if scanFrom < 0 {
		scanFrom = 0
	}
	inString, depth := scanState(t[scanFrom:])
	if inString {
		return "ends inside a string", true
	}
	if (t[0] == '{' || t[0] == '[') && depth > 0 {
		return "brackets left open", true
	}
	return "", false
}

// hasCompleteFencedValue reports whether text holds a closed fenced block
// whose body is valid JSON, in which case trailing prose is irrelevant.
func hasCompleteFencedValue(text string) bool {
	for _, m := range fenceBlockPattern.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[2])
		if body != "" && json.Valid([]byte(body)) {
			return true
		}
	}
	return false
}

// unclosedFenceInterior returns the body following the last fence marker
// when that marker opens a block. A marker with nothing after it closes one.
func unclosedFenceInterior(text string) (string, bool) {
	idx := strings.LastIndex(text, fence)
	rest := text[idx+len(fence):]
	if strings.TrimSpace(rest) == "" {
		return "", false
	}
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[\"") {
		rest = rest[nl+1:]
	}
	return rest, true
}
