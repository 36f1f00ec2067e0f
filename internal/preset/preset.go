package preset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"brieflow/internal/pipeline"
)

// Preset is a saved run configuration.
type Preset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Payload carries template inputs and recipe artifacts.
type Payload struct {
	Brief          string                   `json:"brief,omitempty"`
	Platform       string                   `json:"platform,omitempty"`
	Creativity     int                      `json:"creativity,omitempty"`
	Language       string                   `json:"language,omitempty"`
	NumStrategies  int                      `json:"num_strategies,omitempty"`
	Flags          map[string]bool          `json:"flags,omitempty"`
	BrandKit       *pipeline.BrandKit       `json:"brand_kit,omitempty"`
	StyleOverrides map[string]any           `json:"style_overrides,omitempty"`
	Strategies     []pipeline.Strategy      `json:"strategies,omitempty"`
	StyleGuides    []pipeline.StyleGuide    `json:"style_guides,omitempty"`
	Concepts       []pipeline.VisualConcept `json:"concepts,omitempty"`
}

// Normalize fills the ID and trims names.
func (p *Preset) Normalize() {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Kind = Kind(strings.ToLower(strings.TrimSpace(string(p.Kind))))
}

// Validate checks the preset is usable for its kind.
func (p Preset) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("preset name is required")
	}
	if _, err := ParseKind(string(p.Kind)); err != nil {
		return err
	}
	if p.Kind == KindRecipe && len(p.Payload.Concepts) == 0 {
		return fmt.Errorf("recipe preset %q must carry at least one concept", p.Name)
	}
	if c := p.Payload.Creativity; c != 0 && (c < pipeline.MinCreativity || c > pipeline.MaxCreativity) {
		return fmt.Errorf("preset creativity must be between %d and %d", pipeline.MinCreativity, pipeline.MaxCreativity)
	}
	return nil
}

// PayloadMap returns the payload as a generic map.
func (p Preset) PayloadMap() (map[string]any, error) {
	data, err := json.Marshal(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode preset payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode preset payload: %w", err)
	}
	return out, nil
}

// Fingerprint hashes kind and payload so identical presets can be detected.
func (p Preset) Fingerprint() string {
	data, err := json.Marshal(struct {
		Kind    Kind    `json:"kind"`
		Payload Payload `json:"payload"`
	}{p.Kind, p.Payload})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
