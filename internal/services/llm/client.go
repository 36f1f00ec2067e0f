package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"brieflow/internal/config"
	"brieflow/internal/pipeline"
	"brieflow/internal/services"
	"brieflow/internal/textutil"
)

const (
	jsonResponseType   = "json_object"
	defaultBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout = 15 * time.Second
	operation          = "llm create"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message { return Message{Role: "system", Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: "user", Content: content} }

// Params tunes a single completion.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Response is the text and accounting of one completion.
type Response struct {
	Text         string
	Model        string
	FinishReason string
	Usage        pipeline.Usage
}

// Client issues chat completions.
type Client interface {
	Create(ctx context.Context, model string, messages []Message, params Params) (Response, error)
}

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	MaxTokens      int
}

// ConfigFrom converts the application LLM settings.
func ConfigFrom(cfg config.LLMConfig) Config {
	return Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
		MaxTokens:      cfg.MaxTokens,
	}
}

// DefaultHTTPTimeout returns the default timeout used for LLM requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

// Option customizes a client.
type Option func(*transport)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *transport) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// transport wraps the OpenRouter chat completion API.
type transport struct {
	cfg        Config
	httpClient *http.Client
}

func newTransport(cfg Config, opts ...Option) *transport {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	t := &transport{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxTokens:      cfg.MaxTokens,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.cfg.BaseURL == "" {
		t.cfg.BaseURL = defaultBaseURL
	}
	if t.httpClient == nil {
		t.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return t
}

// RawClient sends plain chat completions.
type RawClient struct {
	t *transport
}

// NewRawClient constructs a RawClient.
func NewRawClient(cfg Config, opts ...Option) *RawClient {
	return &RawClient{t: newTransport(cfg, opts...)}
}

// Create issues one chat completion.
func (c *RawClient) Create(ctx context.Context, model string, messages []Message, params Params) (Response, error) {
	return c.t.create(ctx, model, messages, params, nil)
}

// StructuredClient requests JSON object responses.
type StructuredClient struct {
	t *transport
}

// NewStructuredClient constructs a StructuredClient.
func NewStructuredClient(cfg Config, opts ...Option) *StructuredClient {
	return &StructuredClient{t: newTransport(cfg, opts...)}
}

// Create issues one chat completion constrained to a JSON object.
func (c *StructuredClient) Create(ctx context.Context, model string, messages []Message, params Params) (Response, error) {
	return c.t.create(ctx, model, messages, params, map[string]string{"type": jsonResponseType})
}

// Select returns the client implementation the configuration asks for.
func Select(cfg config.LLMConfig, opts ...Option) Client {
	if cfg.StructuredOutput {
		return NewStructuredClient(ConfigFrom(cfg), opts...)
	}
	return NewRawClient(ConfigFrom(cfg), opts...)
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatCompletionMessage struct {
	Content      string        `json:"content"`
	FunctionCall *functionCall `json:"function_call"`
	ToolCalls    []toolCall    `json:"tool_calls"`
	Refusal      string        `json:"refusal"`
}

type toolCall struct {
	Type     string       `json:"type"`
	ID       string       `json:"id"`
	Index    int          `json:"index"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers mistakenly return the streaming schema (delta) even when
		// stream=false, so tolerate it as a fallback.
		Delta chatCompletionMessage `json:"delta"`
		// Legacy "text" field (completion-style responses).
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (t *transport) create(ctx context.Context, model string, messages []Message, params Params, format map[string]string) (Response, error) {
	if t.cfg.APIKey == "" {
		return Response{}, services.Wrap(services.ErrConfiguration, "", operation, "api key required (set llm.api_key or OPENROUTER_API_KEY)", nil)
	}
	if len(messages) == 0 {
		return Response{}, services.Wrap(services.ErrPermanent, "", operation, "at least one message required", nil)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = t.cfg.Model
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = t.cfg.MaxTokens
	}
	payload := chatCompletionRequest{
		Model:          model,
		Messages:       messages,
		Temperature:    params.Temperature,
		MaxTokens:      maxTokens,
		ResponseFormat: format,
	}

	completion, body, err := t.sendChatRequestOnce(ctx, payload)
	if err != nil {
		return Response{}, classifyError(err)
	}
	content, finishReason := extractCompletionPayload(completion)
	resp := Response{Text: content, Model: firstNonEmpty(completion.Model, model), FinishReason: finishReason}
	if completion.Usage != nil {
		resp.Usage = pipeline.Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
		}
	}
	resp.Usage.ModelID = resp.Model
	if content == "" {
		if len(completion.Choices) == 0 {
			return resp, services.Wrap(services.ErrTransient, "", operation, "empty choices", nil)
		}
		return resp, classifyError(&emptyContentError{
			Op:           operation,
			FinishReason: finishReason,
			Refusal:      extractCompletionRefusal(completion),
			Snippet:      textutil.Preview(string(body), 160),
		})
	}
	return resp, nil
}

func extractCompletionPayload(completion chatCompletionResponse) (string, string) {
	var finishReason string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if content := firstNonEmpty(
			choice.Message.Content,
			choice.Delta.Content,
			choice.Text,
		); content != "" {
			return content, finishReason
		}
		if args := firstNonEmpty(
			functionCallArguments(choice.Message.FunctionCall),
			functionCallArguments(choice.Delta.FunctionCall),
		); args != "" {
			return args, finishReason
		}
		if args := firstNonEmpty(
			toolCallArguments(choice.Message.ToolCalls),
			toolCallArguments(choice.Delta.ToolCalls),
		); args != "" {
			return args, finishReason
		}
	}
	return "", finishReason
}

func extractCompletionRefusal(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		if refusal := firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal); refusal != "" {
			return refusal
		}
	}
	return ""
}

func functionCallArguments(fc *functionCall) string {
	if fc == nil {
		return ""
	}
	return strings.TrimSpace(fc.Arguments)
}

func toolCallArguments(calls []toolCall) string {
	for _, call := range calls {
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			return args
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (t *transport) sendChatRequestOnce(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var completion chatCompletionResponse
	endpoint := t.cfg.BaseURL
	if _, err := url.Parse(endpoint); err != nil {
		return completion, nil, fmt.Errorf("llm request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if t.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", t.cfg.Referer)
		req.Header.Set("Referer", t.cfg.Referer)
	}
	if t.cfg.Title != "" {
		req.Header.Set("X-Title", t.cfg.Title)
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: http error (timeout=%s): %w", t.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: read body (timeout=%s): %w", t.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return completion, body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Delay:      retryAfter,
		}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, &decodeError{err: fmt.Errorf("llm request: decode response: %w", err)}
	}
	if completion.Error != nil {
		return completion, body, &apiError{message: strings.TrimSpace(completion.Error.Message)}
	}
	return completion, body, nil
}

func (t *transport) timeoutDuration() time.Duration {
	if t == nil || t.httpClient == nil || t.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return t.httpClient.Timeout
}
