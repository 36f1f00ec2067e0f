package config

import (
	"fmt"
	"os"
	"strings"

	"brieflow/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeRetry()
	c.normalizeFanOut()
	c.normalizePipeline()
	c.normalizeCost()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	if value, ok := os.LookupEnv("BRIEFLOW_LLM_MODEL"); ok && strings.TrimSpace(value) != "" {
		c.LLM.Model = value
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	if len(c.LLM.StageModels) > 0 {
		cleaned := make(map[string]string, len(c.LLM.StageModels))
		for stage, model := range c.LLM.StageModels {
			stage = strings.ToLower(strings.TrimSpace(stage))
			model = strings.TrimSpace(model)
			if stage == "" || model == "" {
				continue
			}
			cleaned[stage] = model
		}
		c.LLM.StageModels = cleaned
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.AttemptTimeoutMs <= 0 {
		c.Retry.AttemptTimeoutMs = c.LLM.TimeoutSeconds * 1000
	}
	if c.Retry.TimeoutDecay <= 0 {
		c.Retry.TimeoutDecay = 1
	}
}

func (c *Config) normalizeFanOut() {
	if c.FanOut.FallbackPromptTokens <= 0 {
		c.FanOut.FallbackPromptTokens = defaultFallbackPromptTokens
	}
	if c.FanOut.FallbackCompletionTokens <= 0 {
		c.FanOut.FallbackCompletionTokens = defaultFallbackCompletionTokens
	}
}

func (c *Config) normalizePipeline() {
	stages := make([]string, 0, len(c.Pipeline.Stages))
	for _, name := range c.Pipeline.Stages {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		stages = append(stages, name)
	}
	if len(stages) == 0 {
		stages = append(stages, defaultStages...)
	}
	c.Pipeline.Stages = stages
	c.Pipeline.MustProduce = strings.ToLower(strings.TrimSpace(c.Pipeline.MustProduce))
	if c.Pipeline.MustProduce == "" {
		c.Pipeline.MustProduce = defaultMustProduce
	}
	if c.Pipeline.NumStrategies <= 0 {
		c.Pipeline.NumStrategies = defaultNumStrategies
	}
	c.Pipeline.DefaultPlatform = strings.TrimSpace(c.Pipeline.DefaultPlatform)
	if c.Pipeline.DefaultPlatform == "" {
		c.Pipeline.DefaultPlatform = defaultPlatform
	}
	if c.Pipeline.DefaultCreativity == 0 {
		c.Pipeline.DefaultCreativity = defaultCreativity
	}
	c.Pipeline.Language = strings.TrimSpace(c.Pipeline.Language)
	if c.Pipeline.Language == "" {
		c.Pipeline.Language = defaultLanguage
	}
	if normalized := language.Normalize(c.Pipeline.Language); normalized != "" {
		c.Pipeline.Language = normalized
	}
	if c.Pipeline.HeartbeatSeconds < 0 {
		c.Pipeline.HeartbeatSeconds = 0
	}
}

func (c *Config) normalizeCost() {
	c.Cost.Currency = strings.ToUpper(strings.TrimSpace(c.Cost.Currency))
	if c.Cost.Currency == "" {
		c.Cost.Currency = defaultCurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSeconds
	}
}
