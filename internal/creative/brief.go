package creative

import (
	"fmt"
	"strings"

	"brieflow/internal/language"
	"brieflow/internal/pipeline"
)

// describeBrief renders the run inputs shared by every user prompt.
func describeBrief(in pipeline.Inputs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Brief: %s\n", strings.TrimSpace(in.Brief))
	if in.Platform != "" {
		fmt.Fprintf(&b, "Platform: %s\n", in.Platform)
	}
	if in.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", language.Label(in.Language))
	}
	fmt.Fprintf(&b, "Creativity: %d of %d\n", in.Creativity, pipeline.MaxCreativity)
	if kit := in.BrandKit; kit != nil {
		fmt.Fprintf(&b, "Brand: %s\n", kit.Name)
		if kit.Voice != "" {
			fmt.Fprintf(&b, "Brand voice: %s\n", kit.Voice)
		}
		if len(kit.Colors) > 0 {
			fmt.Fprintf(&b, "Brand colors: %s\n", strings.Join(kit.Colors, ", "))
		}
	}
	return b.String()
}

func describeStrategy(s pipeline.Strategy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Strategy: %s\nCore message: %s\n", s.Name, s.CoreMessage)
	if s.Audience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", s.Audience)
	}
	if s.Angle != "" {
		fmt.Fprintf(&b, "Angle: %s\n", s.Angle)
	}
	if len(s.KeyPoints) > 0 {
		fmt.Fprintf(&b, "Key points: %s\n", strings.Join(s.KeyPoints, "; "))
	}
	return b.String()
}

func describeStyle(g pipeline.StyleGuide) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mood: %s\n", g.Mood)
	if len(g.Palette) > 0 {
		fmt.Fprintf(&b, "Palette: %s\n", strings.Join(g.Palette, ", "))
	}
	if g.Typography != "" {
		fmt.Fprintf(&b, "Typography: %s\n", g.Typography)
	}
	if g.Lighting != "" {
		fmt.Fprintf(&b, "Lighting: %s\n", g.Lighting)
	}
	if len(g.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(g.Keywords, ", "))
	}
	return b.String()
}
