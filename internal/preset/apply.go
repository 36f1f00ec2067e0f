package preset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"brieflow/internal/pipeline"
	"brieflow/internal/services"
)

// Store loads presets by ID.
type Store interface {
	GetPreset(ctx context.Context, id string) (Preset, error)
}

// Overrides are caller-supplied values that replace what a preset captured.
type Overrides struct {
	BrandKit *pipeline.BrandKit
	Style    map[string]any
}

var equalOpts = []cmp.Option{cmpopts.EquateEmpty()}

// Apply seeds rc from p. Template presets fill inputs the caller left unset.
// Recipe presets write their artifacts into the slots, populate the skip set,
// and flag caller overrides that differ from the captured values. Overrides
// replace captured values wholesale; the two are never merged.
func Apply(rc *pipeline.Context, p Preset, overrides Overrides) error {
	if rc == nil {
		return fmt.Errorf("apply preset: nil run context")
	}
	if err := p.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "preset", "apply", "invalid preset", err)
	}
	payload, err := p.PayloadMap()
	if err != nil {
		return err
	}
	rc.PresetID = p.ID
	rc.PresetKind = string(p.Kind)
	rc.PresetPayload = payload

	fillInputs(&rc.Inputs, p.Payload)

	switch p.Kind {
	case KindTemplate:
		if overrides.BrandKit != nil {
			rc.Inputs.BrandKit = overrides.BrandKit
		} else if rc.Inputs.BrandKit == nil {
			rc.Inputs.BrandKit = p.Payload.BrandKit
		}
		if overrides.Style != nil {
			rc.Inputs.StyleOverrides = overrides.Style
		} else if rc.Inputs.StyleOverrides == nil {
			rc.Inputs.StyleOverrides = p.Payload.StyleOverrides
		}
	case KindRecipe:
		rc.Inputs.BrandKit = p.Payload.BrandKit
		if overrides.BrandKit != nil {
			rc.OverrideBrandKit = !cmp.Equal(overrides.BrandKit, p.Payload.BrandKit, equalOpts...)
			rc.Inputs.BrandKit = overrides.BrandKit
		}
		rc.Inputs.StyleOverrides = p.Payload.StyleOverrides
		if overrides.Style != nil {
			rc.OverrideStyle = !sameStyle(overrides.Style, p.Payload.StyleOverrides)
			rc.Inputs.StyleOverrides = overrides.Style
		}
		if err := seedArtifacts(rc, p.Payload); err != nil {
			return err
		}
		for name := range ResolveSkips(p.Kind) {
			rc.Skip(name)
		}
	}
	rc.Logf("applied %s preset %s (%s)", p.Kind, p.Name, p.ID)
	return nil
}

// RecipeBrandKit returns the brand kit captured by the recipe applied to rc.
// Stages use it unless rc.OverrideBrandKit says the caller supplied a
// different kit.
func RecipeBrandKit(rc *pipeline.Context) (*pipeline.BrandKit, bool) {
	if rc == nil || rc.PresetKind != string(KindRecipe) {
		return nil, false
	}
	raw, ok := rc.PresetPayload["brand_kit"]
	if !ok || raw == nil {
		return nil, false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var kit pipeline.BrandKit
	if err := json.Unmarshal(data, &kit); err != nil {
		return nil, false
	}
	return &kit, true
}

// sameStyle compares style maps by content. The caller's map usually comes
// from YAML (int numbers) and the recipe's from JSON (float64 numbers), so
// both sides go through one JSON round trip first.
func sameStyle(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	na, errA := jsonValue(a)
	nb, errB := jsonValue(b)
	if errA != nil || errB != nil {
		return cmp.Equal(a, b, equalOpts...)
	}
	return cmp.Equal(na, nb, equalOpts...)
}

func jsonValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Load fetches a preset from store and applies it.
func Load(ctx context.Context, store Store, id string, rc *pipeline.Context, overrides Overrides) (Preset, error) {
	if store == nil {
		return Preset{}, services.Wrap(services.ErrConfiguration, "preset", "load", "preset store unavailable", nil)
	}
	p, err := store.GetPreset(ctx, id)
	if err != nil {
		return Preset{}, err
	}
	return p, Apply(rc, p, overrides)
}

func fillInputs(in *pipeline.Inputs, p Payload) {
	if in.Brief == "" {
		in.Brief = p.Brief
	}
	if in.Platform == "" {
		in.Platform = p.Platform
	}
	if in.Creativity == 0 {
		in.Creativity = p.Creativity
	}
	if in.Language == "" {
		in.Language = p.Language
	}
	if in.NumStrategies == 0 {
		in.NumStrategies = p.NumStrategies
	}
	if len(p.Flags) > 0 {
		if in.Flags == nil {
			in.Flags = make(map[string]bool, len(p.Flags))
		}
		for k, v := range p.Flags {
			if _, set := in.Flags[k]; !set {
				in.Flags[k] = v
			}
		}
	}
}

func seedArtifacts(rc *pipeline.Context, p Payload) error {
	if len(p.Strategies) > 0 {
		if err := rc.Strategies.Set(p.Strategies); err != nil {
			return fmt.Errorf("seed strategies: %w", err)
		}
	}
	if len(p.StyleGuides) > 0 {
		if err := rc.StyleGuides.Set(p.StyleGuides); err != nil {
			return fmt.Errorf("seed style guides: %w", err)
		}
	}
	if err := rc.Concepts.Set(p.Concepts); err != nil {
		return fmt.Errorf("seed concepts: %w", err)
	}
	return nil
}
