package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// LLM contains shared LLM connection settings used by every stage.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxTokens      int    `toml:"max_tokens"`
	// StructuredOutput requests json_object responses from the provider. Some
	// models reject the response_format field, so it can be turned off.
	StructuredOutput bool `toml:"structured_output"`
	// StageModels overrides the model per stage name.
	StageModels map[string]string `toml:"stage_models"`
}

// Retry contains the backoff policy applied to transient LLM failures.
type Retry struct {
	MaxRetries       int     `toml:"max_retries"`
	BaseDelayMillis  int     `toml:"base_delay_ms"`
	MaxDelayMillis   int     `toml:"max_delay_ms"`
	JitterFraction   float64 `toml:"jitter_fraction"`
	AttemptTimeoutMs int     `toml:"attempt_timeout_ms"`
	TimeoutDecay     float64 `toml:"timeout_decay"`
}

// FanOut contains per-item concurrency settings.
type FanOut struct {
	// MaxConcurrency caps simultaneous item operations. Zero launches every item at once.
	MaxConcurrency           int `toml:"max_concurrency"`
	FallbackPromptTokens     int `toml:"fallback_prompt_tokens"`
	FallbackCompletionTokens int `toml:"fallback_completion_tokens"`
}

// Pipeline contains stage ordering and run defaults.
type Pipeline struct {
	Stages            []string `toml:"stages"`
	MustProduce       string   `toml:"must_produce"`
	NumStrategies     int      `toml:"num_strategies"`
	DefaultPlatform   string   `toml:"default_platform"`
	DefaultCreativity int      `toml:"default_creativity"`
	Language          string   `toml:"language"`
	HeartbeatSeconds  int      `toml:"heartbeat_seconds"`
}

// ModelPrice is the USD price per million tokens for a model.
type ModelPrice struct {
	InputPer1M  float64 `toml:"input_per_1m"`
	OutputPer1M float64 `toml:"output_per_1m"`
}

// Cost contains pricing overrides for usage reporting.
type Cost struct {
	Currency string                `toml:"currency"`
	Models   map[string]ModelPrice `toml:"models"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications configures ntfy alerts for finished runs.
type Notifications struct {
	// NtfyTopic is the full topic URL. Empty disables notifications.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifyOnSuccess       bool   `toml:"notify_on_success"`
}

// Config encapsulates all configuration values for brieflow.
//
// Configuration sections by subsystem:
//   - Paths: data (run database) and log directories
//   - LLM: provider connection settings and per-stage model overrides
//   - Retry: transient failure backoff
//   - FanOut: per-item concurrency and fallback usage estimates
//   - Pipeline: stage order, must-produce slot, run defaults
//   - Cost: model pricing
//   - Logging: log format and level
//   - Notifications: ntfy alerts for finished runs
type Config struct {
	Paths    Paths    `toml:"paths"`
	LLM      LLM      `toml:"llm"`
	Retry    Retry    `toml:"retry"`
	FanOut   FanOut   `toml:"fanout"`
	Pipeline Pipeline `toml:"pipeline"`
	Cost     Cost     `toml:"cost"`
	Logging  Logging  `toml:"logging"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/brieflow/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("brieflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the run database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "brieflow.db")
}

// ModelForStage returns the configured model for a stage, falling back to [llm].model.
func (c *Config) ModelForStage(stage string) string {
	if c.LLM.StageModels != nil {
		if model := strings.TrimSpace(c.LLM.StageModels[stage]); model != "" {
			return model
		}
	}
	return strings.TrimSpace(c.LLM.Model)
}

// RetryBaseDelay returns the configured base backoff delay.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMillis) * time.Millisecond
}

// RetryMaxDelay returns the configured backoff cap.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Retry.MaxDelayMillis) * time.Millisecond
}

// AttemptTimeout returns the first-attempt timeout for a single LLM call.
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Retry.AttemptTimeoutMs) * time.Millisecond
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// HeartbeatInterval returns how often long-running stages log progress.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Pipeline.HeartbeatSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved LLM connection settings.
type LLMConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	Referer          string
	Title            string
	TimeoutSeconds   int
	MaxTokens        int
	StructuredOutput bool
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:           strings.TrimSpace(c.LLM.APIKey),
		BaseURL:          strings.TrimSpace(c.LLM.BaseURL),
		Model:            strings.TrimSpace(c.LLM.Model),
		Referer:          strings.TrimSpace(c.LLM.Referer),
		Title:            strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds:   c.LLM.TimeoutSeconds,
		MaxTokens:        c.LLM.MaxTokens,
		StructuredOutput: c.LLM.StructuredOutput,
	}
}
