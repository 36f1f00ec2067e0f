package preset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"brieflow/internal/fanout"
)

// ParseYAML decodes one or more presets from a YAML document stream. Field
// names follow the JSON tags.
func ParseYAML(data []byte) ([]Preset, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []Preset
	for {
		var doc any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse preset yaml: %w", err)
		}
		if doc == nil {
			continue
		}
		docs := []any{doc}
		if list, ok := doc.([]any); ok {
			docs = list
		}
		for i, item := range docs {
			p, err := presetFromGeneric(item)
			if err != nil {
				return nil, fmt.Errorf("preset %d: %w", len(out)+i+1, err)
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func presetFromGeneric(v any) (Preset, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Preset{}, fmt.Errorf("encode preset: %w", err)
	}
	var p Preset
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Preset{}, fmt.Errorf("decode preset: %w", err)
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// ExportYAML renders a preset as YAML using the JSON field names.
func ExportYAML(p Preset) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode preset: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode preset: %w", err)
	}
	return yaml.Marshal(generic)
}

// Fingerprints hashes presets on a bounded worker pool.
func Fingerprints(ctx context.Context, pool *fanout.Pool, presets []Preset) ([]string, error) {
	return fanout.Map(ctx, pool, presets, Preset.Fingerprint)
}
