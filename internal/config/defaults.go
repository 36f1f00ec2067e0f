package config

const (
	defaultDataDir                  = "~/.local/share/brieflow"
	defaultLogDir                   = "~/.local/share/brieflow/logs"
	defaultLLMBaseURL               = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                 = "google/gemini-3-flash-preview"
	defaultLLMReferer               = "https://github.com/brieflow/brieflow"
	defaultLLMTitle                 = "brieflow"
	defaultLLMTimeoutSeconds        = 60
	defaultLLMMaxTokens             = 4096
	defaultRetryMaxRetries          = 3
	defaultRetryBaseDelayMillis     = 1000
	defaultRetryMaxDelayMillis      = 10000
	defaultRetryJitterFraction      = 0.25
	defaultRetryTimeoutDecay        = 0.75
	defaultFallbackPromptTokens     = 500
	defaultFallbackCompletionTokens = 500
	defaultMustProduce              = "final_prompts"
	defaultNumStrategies            = 3
	defaultPlatform                 = "instagram_post"
	defaultCreativity               = 2
	defaultLanguage                 = "en"
	defaultHeartbeatSeconds         = 30
	defaultCurrency                 = "USD"
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultNotifyTimeoutSeconds     = 10
)

var defaultStages = []string{
	"strategy",
	"style_guide",
	"creative_expert",
	"prompt_assembly",
	"assessment",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	stages := make([]string, len(defaultStages))
	copy(stages, defaultStages)
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		LLM: LLM{
			BaseURL:          defaultLLMBaseURL,
			Model:            defaultLLMModel,
			Referer:          defaultLLMReferer,
			Title:            defaultLLMTitle,
			TimeoutSeconds:   defaultLLMTimeoutSeconds,
			MaxTokens:        defaultLLMMaxTokens,
			StructuredOutput: true,
		},
		Retry: Retry{
			MaxRetries:       defaultRetryMaxRetries,
			BaseDelayMillis:  defaultRetryBaseDelayMillis,
			MaxDelayMillis:   defaultRetryMaxDelayMillis,
			JitterFraction:   defaultRetryJitterFraction,
			TimeoutDecay:     defaultRetryTimeoutDecay,
			AttemptTimeoutMs: defaultLLMTimeoutSeconds * 1000,
		},
		FanOut: FanOut{
			FallbackPromptTokens:     defaultFallbackPromptTokens,
			FallbackCompletionTokens: defaultFallbackCompletionTokens,
		},
		Pipeline: Pipeline{
			Stages:            stages,
			MustProduce:       defaultMustProduce,
			NumStrategies:     defaultNumStrategies,
			DefaultPlatform:   defaultPlatform,
			DefaultCreativity: defaultCreativity,
			Language:          defaultLanguage,
			HeartbeatSeconds:  defaultHeartbeatSeconds,
		},
		Cost: Cost{
			Currency: defaultCurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
			NotifyOnSuccess:       true,
		},
	}
}
