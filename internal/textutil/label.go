package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Label converts snake_case identifiers such as stage names into title-cased
// labels ("creative_expert" -> "Creative Expert").
func Label(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ""
	}
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(identifier))
	return titleCaser.String(strings.ToLower(strings.Join(words, " ")))
}

// Token converts a free-form name into a lowercase identifier token. Letters,
// digits, and hyphens are kept; everything else becomes an underscore.
// Returns "unnamed" for input that yields nothing.
func Token(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	if out == "" {
		return "unnamed"
	}
	return out
}
