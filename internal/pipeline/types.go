package pipeline

import (
	"errors"
	"strings"
)

// BrandKit captures brand constraints supplied with a brief.
type BrandKit struct {
	Name    string   `json:"name" yaml:"name"`
	Colors  []string `json:"colors,omitempty" yaml:"colors,omitempty"`
	Fonts   []string `json:"fonts,omitempty" yaml:"fonts,omitempty"`
	Voice   string   `json:"voice,omitempty" yaml:"voice,omitempty"`
	LogoURL string   `json:"logo_url,omitempty" yaml:"logo_url,omitempty"`
}

// Strategy is one marketing angle derived from the brief.
type Strategy struct {
	Name        string   `json:"name"`
	CoreMessage string   `json:"core_message"`
	Audience    string   `json:"audience,omitempty"`
	Angle       string   `json:"angle,omitempty"`
	KeyPoints   []string `json:"key_points,omitempty"`
}

// Validate requires a name and a message.
func (s Strategy) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("strategy name is required")
	}
	if strings.TrimSpace(s.CoreMessage) == "" {
		return errors.New("strategy core_message is required")
	}
	return nil
}

// StyleGuide describes the visual treatment for one strategy.
type StyleGuide struct {
	StrategyName string   `json:"strategy_name"`
	Palette      []string `json:"palette,omitempty"`
	Typography   string   `json:"typography,omitempty"`
	Mood         string   `json:"mood"`
	Lighting     string   `json:"lighting,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

func (g StyleGuide) Validate() error {
	if strings.TrimSpace(g.Mood) == "" {
		return errors.New("style guide mood is required")
	}
	return nil
}

// VisualConcept is a concrete scene proposal.
type VisualConcept struct {
	StrategyName string `json:"strategy_name"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Subject      string `json:"subject,omitempty"`
	Setting      string `json:"setting,omitempty"`
	Composition  string `json:"composition,omitempty"`
}

func (c VisualConcept) Validate() error {
	if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Description) == "" {
		return errors.New("concept title and description are required")
	}
	return nil
}

// FinalPrompt is an image-generation prompt assembled from a concept.
type FinalPrompt struct {
	ConceptTitle   string `json:"concept_title"`
	StrategyName   string `json:"strategy_name,omitempty"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
}

// Assessment scores one final prompt against the brief.
type Assessment struct {
	PromptIndex  int     `json:"prompt_index"`
	ConceptTitle string  `json:"concept_title"`
	Score        float64 `json:"score"`
	Alignment    float64 `json:"alignment"`
	Notes        string  `json:"notes,omitempty"`
	IsFallback   bool    `json:"is_fallback,omitempty"`
}

func (a Assessment) Validate() error {
	if a.Score < 0 || a.Score > 10 {
		return errors.New("assessment score must be within 0..10")
	}
	return nil
}
