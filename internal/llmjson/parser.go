package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"

	"brieflow/internal/services"
	"brieflow/internal/textutil"
)

const operation = "extract"

// Result describes a successful extraction.
type Result struct {
	// Value is the generic decoded value (maps, slices, float64, string, bool, nil).
	Value any
	// JSON is the exact text that parsed.
	JSON     string
	Strategy Strategy
	Repaired bool
	// Repairs lists the repair steps applied, in order.
	Repairs []string
	// FallbackApplied is set by ExtractAndValidate when the fallback
	// transform produced the returned value.
	FallbackApplied bool
}

// Extract locates the first structured value in raw model output.
func Extract(raw string) (Result, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{}, services.Wrap(services.ErrExtractionFailed, "", operation, "empty response", nil)
	}
	if reason, truncated := truncationReason(trimmed); truncated {
		return Result{}, truncatedError(reason, trimmed)
	}

	text := Preprocess(trimmed)
	for _, strategy := range []func(string) (Result, bool){fromFence, fromDirect, fromBrackets, fromRepair} {
		if res, ok := strategy(text); ok {
			return res, nil
		}
	}

	if reason, truncated := truncationReason(text); truncated {
		return Result{}, truncatedError(reason, trimmed)
	}
	return Result{}, services.Wrap(
		services.ErrExtractionFailed,
		"",
		operation,
		fmt.Sprintf("no structured value found (preview: %s)", textutil.Preview(trimmed, textutil.DefaultPreviewLimit)),
		nil,
	)
}

func truncatedError(reason, text string) error {
	return services.Wrap(
		services.ErrTruncated,
		"",
		operation,
		fmt.Sprintf("response appears truncated: %s (preview: %s)", reason, tail(text, textutil.DefaultPreviewLimit)),
		nil,
	)
}

// tail keeps the last limit runes, where truncation is visible.
func tail(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return "..." + string(runes[len(runes)-limit:])
}

// Decode extracts a value from content and unmarshals it into target.
func Decode(content string, target any) error {
	res, err := Extract(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(res.JSON), target); err != nil {
		return services.Wrap(services.ErrValidation, "", "decode", fmt.Sprintf("decode into %T", target), err)
	}
	return nil
}
