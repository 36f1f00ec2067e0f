package cost

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"brieflow/internal/config"
)

// ErrModelUnknown is returned when a model has no price entry.
var ErrModelUnknown = errors.New("model unknown")

// Model is the pricing entry for one model.
type Model struct {
	ID          string
	InputPer1M  float64
	OutputPer1M float64
}

// DefaultModels contains the built-in OpenRouter price list.
var DefaultModels = []Model{
	{ID: "google/gemini-3-flash-preview", InputPer1M: 0.5, OutputPer1M: 3.0},
	{ID: "google/gemini-2.5-flash", InputPer1M: 0.3, OutputPer1M: 2.5},
	{ID: "google/gemini-2.5-pro", InputPer1M: 1.25, OutputPer1M: 10.0},
	{ID: "anthropic/claude-sonnet-4.5", InputPer1M: 3.0, OutputPer1M: 15.0},
	{ID: "anthropic/claude-haiku-4.5", InputPer1M: 1.0, OutputPer1M: 5.0},
	{ID: "openai/gpt-4o-mini", InputPer1M: 0.15, OutputPer1M: 0.6},
	{ID: "openai/gpt-4.1", InputPer1M: 2.0, OutputPer1M: 8.0},
	{ID: "deepseek/deepseek-chat", InputPer1M: 0.27, OutputPer1M: 1.1},
}

// Catalog is a concurrency-safe model price list.
type Catalog struct {
	mu     sync.RWMutex
	models map[string]Model
}

// NewCatalog creates a catalog with the default models.
func NewCatalog() *Catalog {
	return NewCatalogWithModels(DefaultModels)
}

// NewCatalogWithModels creates a catalog from models.
func NewCatalogWithModels(models []Model) *Catalog {
	c := &Catalog{models: make(map[string]Model, len(models))}
	for _, m := range models {
		c.models[normalizeID(m.ID)] = m
	}
	return c
}

// CatalogFromConfig creates the default catalog with [cost.models] overrides applied.
func CatalogFromConfig(cfg config.Cost) (*Catalog, error) {
	c := NewCatalog()
	for id, price := range cfg.Models {
		if err := c.Set(Model{ID: id, InputPer1M: price.InputPer1M, OutputPer1M: price.OutputPer1M}); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Get returns model info by ID.
func (c *Catalog) Get(id string) (Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[normalizeID(id)]
	return m, ok
}

// Set adds or replaces a model price.
func (c *Catalog) Set(m Model) error {
	id := normalizeID(m.ID)
	if id == "" {
		return errors.New("cost catalog: model id required")
	}
	if m.InputPer1M < 0 || m.OutputPer1M < 0 {
		return fmt.Errorf("cost catalog: negative price for %s", m.ID)
	}
	m.ID = strings.TrimSpace(m.ID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[id] = m
	return nil
}

// List returns all models sorted by ID.
func (c *Catalog) List() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Model, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Model) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
