package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"brieflow/internal/language"
	"brieflow/internal/stage"
)

var knownMustProduce = map[string]struct{}{
	"strategies":    {},
	"style_guides":  {},
	"concepts":      {},
	"final_prompts": {},
	"assessments":   {},
}

// Validate ensures the configuration is usable. The API key is not required
// here so offline commands (presets, runs, parse) work without credentials;
// the run command checks it before constructing a client.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateFanOut(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateCost(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateLLM() error {
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("llm.max_tokens must be positive")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must be >= 0")
	}
	if c.Retry.BaseDelayMillis < 0 {
		return errors.New("retry.base_delay_ms must be >= 0")
	}
	if c.Retry.MaxDelayMillis < c.Retry.BaseDelayMillis {
		return errors.New("retry.max_delay_ms must be >= retry.base_delay_ms")
	}
	if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction > 1 {
		return errors.New("retry.jitter_fraction must be between 0 and 1")
	}
	if c.Retry.TimeoutDecay <= 0 || c.Retry.TimeoutDecay > 1 {
		return errors.New("retry.timeout_decay must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateFanOut() error {
	if c.FanOut.MaxConcurrency < 0 {
		return errors.New("fanout.max_concurrency must be >= 0 (0 means unbounded)")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	seen := make(map[string]struct{}, len(c.Pipeline.Stages))
	for _, name := range c.Pipeline.Stages {
		if !stage.Known(name) {
			return fmt.Errorf("pipeline.stages: unknown stage %q", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("pipeline.stages lists %q more than once", name)
		}
		seen[name] = struct{}{}
	}
	if _, ok := knownMustProduce[c.Pipeline.MustProduce]; !ok {
		return fmt.Errorf("pipeline.must_produce: unsupported slot %q", c.Pipeline.MustProduce)
	}
	if c.Pipeline.DefaultCreativity < 1 || c.Pipeline.DefaultCreativity > 3 {
		return errors.New("pipeline.default_creativity must be 1, 2, or 3")
	}
	if language.Normalize(c.Pipeline.Language) == "" {
		return fmt.Errorf("pipeline.language: unrecognized language %q", c.Pipeline.Language)
	}
	return nil
}

func (c *Config) validateCost() error {
	for model, price := range c.Cost.Models {
		if strings.TrimSpace(model) == "" {
			return errors.New("cost.models contains an empty model id")
		}
		if price.InputPer1M < 0 || price.OutputPer1M < 0 {
			return fmt.Errorf("cost.models.%s: prices must be >= 0", model)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	u, err := url.Parse(topic)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}
