package preset

import (
	"fmt"
	"strings"

	"brieflow/internal/stage"
)

// Kind distinguishes template presets from recipe presets.
type Kind string

const (
	KindTemplate Kind = "template"
	KindRecipe   Kind = "recipe"
)

// ParseKind accepts a case-insensitive kind name.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindTemplate:
		return KindTemplate, nil
	case KindRecipe:
		return KindRecipe, nil
	default:
		return "", fmt.Errorf("unknown preset kind %q (want %s or %s)", raw, KindTemplate, KindRecipe)
	}
}

// ResolveSkips returns the stages a run seeded by kind must skip. Unknown
// kinds skip nothing.
func ResolveSkips(kind Kind) map[string]struct{} {
	skips := make(map[string]struct{})
	if kind == KindRecipe {
		for _, name := range []string{stage.Strategy, stage.StyleGuide, stage.CreativeExpert} {
			skips[name] = struct{}{}
		}
	}
	return skips
}
