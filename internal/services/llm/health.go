package llm

import (
	"context"
	"errors"
	"fmt"

	"brieflow/internal/llmjson"
)

// HealthCheck asks model for a fixed JSON reply and verifies it parses.
func HealthCheck(ctx context.Context, client Client, model string) error {
	if client == nil {
		return errors.New("llm health: client required")
	}
	resp, err := client.Create(ctx, model, []Message{
		System("You must respond with JSON only."),
		User("Respond with {\"ok\":true}"),
	}, Params{Temperature: 0})
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := llmjson.Decode(resp.Text, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}
