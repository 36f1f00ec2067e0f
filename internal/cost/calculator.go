package cost

import (
	"fmt"

	"brieflow/internal/pipeline"
)

// Calculator prices usage against a catalog.
type Calculator struct {
	catalog *Catalog
}

// NewCalculator creates a Calculator. A nil catalog uses the defaults.
func NewCalculator(catalog *Catalog) *Calculator {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Calculator{catalog: catalog}
}

// Catalog returns the underlying price list.
func (c *Calculator) Catalog() *Catalog { return c.catalog }

// Cost returns the USD cost of usage. Unknown models cost zero and return ErrModelUnknown.
func (c *Calculator) Cost(usage pipeline.Usage) (float64, error) {
	info, ok := c.catalog.Get(usage.ModelID)
	if !ok {
		return 0, fmt.Errorf("price %q: %w", usage.ModelID, ErrModelUnknown)
	}
	amount := float64(usage.PromptTokens)*info.InputPer1M/1_000_000 +
		float64(usage.CompletionTokens)*info.OutputPer1M/1_000_000
	return amount, nil
}

// Record converts usage into a priced record. The error reports an unknown
// model; the record is still usable with a zero cost.
func (c *Calculator) Record(usage pipeline.Usage, fallback bool) (pipeline.UsageRecord, error) {
	amount, err := c.Cost(usage)
	return pipeline.NewUsageRecord(usage, amount, fallback), err
}
