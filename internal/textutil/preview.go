package textutil

import "strings"

// DefaultPreviewLimit bounds the number of runes Preview keeps.
const DefaultPreviewLimit = 160

var whitespaceReplacer = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")

// Preview collapses whitespace and truncates content to limit runes, appending
// an ellipsis when truncated. Empty input yields "<empty>".
func Preview(content string, limit int) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	clean := strings.Join(strings.Fields(whitespaceReplacer.Replace(trimmed)), " ")
	runes := []rune(clean)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
