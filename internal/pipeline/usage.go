package pipeline

// Usage is the token accounting of a single model call.
type Usage struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	ModelID          string `json:"model_id,omitempty"`
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int { return u.PromptTokens + u.CompletionTokens }

// Add sums token counts, keeping the first non-empty model.
func (u Usage) Add(other Usage) Usage {
	out := Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		ModelID:          u.ModelID,
	}
	if out.ModelID == "" {
		out.ModelID = other.ModelID
	}
	return out
}

// UsageRecord is the per-stage usage entry kept on the run.
type UsageRecord struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	ModelID          string  `json:"model_id,omitempty"`
	CostUSD          float64 `json:"cost_usd"`
	IsFallback       bool    `json:"is_fallback,omitempty"`
	Calls            int     `json:"calls"`
}

// NewUsageRecord converts a call usage into a record.
func NewUsageRecord(u Usage, costUSD float64, fallback bool) UsageRecord {
	return UsageRecord{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.Total(),
		ModelID:          u.ModelID,
		CostUSD:          costUSD,
		IsFallback:       fallback,
		Calls:            1,
	}
}

// Merge sums two records. A record is a fallback if either side was.
func (r UsageRecord) Merge(other UsageRecord) UsageRecord {
	out := UsageRecord{
		PromptTokens:     r.PromptTokens + other.PromptTokens,
		CompletionTokens: r.CompletionTokens + other.CompletionTokens,
		TotalTokens:      r.TotalTokens + other.TotalTokens,
		ModelID:          r.ModelID,
		CostUSD:          r.CostUSD + other.CostUSD,
		IsFallback:       r.IsFallback || other.IsFallback,
		Calls:            r.Calls + other.Calls,
	}
	if out.ModelID == "" {
		out.ModelID = other.ModelID
	}
	return out
}
