package creative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"brieflow/internal/logging"
	"brieflow/internal/pipeline"
	"brieflow/internal/preset"
	"brieflow/internal/stage"
)

// FlagIncludeText allows rendered text in generated images.
const FlagIncludeText = "include_text"

const defaultAspectRatio = "1:1"

var aspectRatios = map[string]string{
	"instagram_post":    "1:1",
	"instagram_story":   "9:16",
	"facebook_post":     "1.91:1",
	"linkedin_post":     "1.91:1",
	"twitter_post":      "16:9",
	"pinterest_pin":     "2:3",
	"youtube_thumbnail": "16:9",
}

// AspectRatio returns the image aspect ratio for a platform.
func AspectRatio(platform string) string {
	if ratio, ok := aspectRatios[strings.ToLower(strings.TrimSpace(platform))]; ok {
		return ratio
	}
	return defaultAspectRatio
}

// PromptAssemblyStage turns concepts into image prompts without calling the LLM.
type PromptAssemblyStage struct {
	logger *slog.Logger
}

// NewPromptAssemblyStage constructs the prompt assembly stage.
func NewPromptAssemblyStage(d Deps) *PromptAssemblyStage {
	return &PromptAssemblyStage{logger: d.logger("prompt_assembly")}
}

// Name returns the stage name.
func (s *PromptAssemblyStage) Name() string { return stage.PromptAssembly }

// Execute assembles one prompt per concept.
func (s *PromptAssemblyStage) Execute(ctx context.Context, rc *pipeline.Context) error {
	concepts, err := stage.RequireSlot(stage.PromptAssembly, pipeline.SlotConcepts, &rc.Concepts)
	if err != nil {
		return failSlot(&rc.FinalPrompts, err)
	}
	guides, _ := rc.StyleGuides.Get()
	byStrategy := make(map[string]pipeline.StyleGuide, len(guides))
	for _, g := range guides {
		byStrategy[g.StrategyName] = g
	}
	override, hasOverride := styleFromOverrides(rc.Inputs.StyleOverrides)
	kit := brandKitFor(rc)

	prompts := make([]pipeline.FinalPrompt, 0, len(concepts))
	for _, concept := range concepts {
		var style *pipeline.StyleGuide
		switch g, ok := byStrategy[concept.StrategyName]; {
		case rc.OverrideStyle && hasOverride:
			style = &override
		case ok:
			style = &g
		case hasOverride:
			style = &override
		}
		prompts = append(prompts, assemble(concept, style, kit, rc.Inputs))
	}
	if err := rc.FinalPrompts.Set(prompts); err != nil {
		return err
	}
	rc.Logf("prompt_assembly: assembled %d prompts", len(prompts))
	logging.WithContext(ctx, s.logger).Info(
		"prompts assembled",
		logging.String(logging.FieldEventType, "prompts_assembled"),
		logging.Int("count", len(prompts)),
		logging.Bool("brand_kit_overridden", rc.OverrideBrandKit),
		logging.Bool("style_overridden", rc.OverrideStyle),
	)
	return nil
}

// brandKitFor picks the recipe's captured kit unless the caller overrode it.
func brandKitFor(rc *pipeline.Context) *pipeline.BrandKit {
	if rc.OverrideBrandKit {
		return rc.Inputs.BrandKit
	}
	if kit, ok := preset.RecipeBrandKit(rc); ok {
		return kit
	}
	return rc.Inputs.BrandKit
}

func assemble(c pipeline.VisualConcept, style *pipeline.StyleGuide, kit *pipeline.BrandKit, in pipeline.Inputs) pipeline.FinalPrompt {
	parts := []string{fmt.Sprintf("%s: %s", c.Title, strings.TrimSuffix(strings.TrimSpace(c.Description), "."))}
	for _, detail := range []struct{ label, value string }{
		{"Subject", c.Subject},
		{"Setting", c.Setting},
		{"Composition", c.Composition},
	} {
		if v := strings.TrimSpace(detail.value); v != "" {
			parts = append(parts, detail.label+": "+v)
		}
	}
	if style != nil {
		if style.Mood != "" {
			parts = append(parts, "Mood: "+style.Mood)
		}
		if style.Lighting != "" {
			parts = append(parts, "Lighting: "+style.Lighting)
		}
		if len(style.Palette) > 0 {
			parts = append(parts, "Palette: "+strings.Join(style.Palette, ", "))
		}
		if style.Typography != "" && in.Flag(FlagIncludeText) {
			parts = append(parts, "Typography: "+style.Typography)
		}
		if len(style.Keywords) > 0 {
			parts = append(parts, strings.Join(style.Keywords, ", "))
		}
	}
	if kit != nil && len(kit.Colors) > 0 && (style == nil || len(style.Palette) == 0) {
		parts = append(parts, "Brand colors: "+strings.Join(kit.Colors, ", "))
	}

	negative := "blurry, distorted, low quality"
	if !in.Flag(FlagIncludeText) {
		negative += ", text, watermark, lettering"
	}
	return pipeline.FinalPrompt{
		ConceptTitle:   c.Title,
		StrategyName:   c.StrategyName,
		Prompt:         strings.Join(parts, ". ") + ".",
		NegativePrompt: negative,
		AspectRatio:    AspectRatio(in.Platform),
	}
}

// styleFromOverrides reads a style guide out of caller overrides.
func styleFromOverrides(overrides map[string]any) (pipeline.StyleGuide, bool) {
	if len(overrides) == 0 {
		return pipeline.StyleGuide{}, false
	}
	return pipeline.StyleGuide{
		Mood:       stringValue(overrides["mood"]),
		Lighting:   stringValue(overrides["lighting"]),
		Typography: stringValue(overrides["typography"]),
		Palette:    stringList(overrides["palette"]),
		Keywords:   stringList(overrides["keywords"]),
	}, true
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	}
	return nil
}
