package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"brieflow/internal/config"
	"brieflow/internal/retry"
	"brieflow/internal/services"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"model": "demo-model",
			"choices": []any{
				map[string]any{
					"message":       map[string]any{"content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 7},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}
}

func TestRawClientCreate(t *testing.T) {
	var received chatCompletionRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		completionHandler(t, `{"ok":true}`)(w, r)
	}))
	defer server.Close()

	client := NewRawClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", MaxTokens: 256})
	resp, err := client.Create(context.Background(), "", []Message{System("sys"), User("hi")}, Params{Temperature: 0.4})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if resp.Text != `{"ok":true}` {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage.PromptTokens != 12 || resp.Usage.CompletionTokens != 7 || resp.Usage.ModelID != "demo-model" {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if resp.FinishReason != "stop" {
		t.Fatalf("unexpected finish reason %q", resp.FinishReason)
	}
	if auth != "Bearer test" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
	if received.Model != "demo-model" || received.MaxTokens != 256 || received.Temperature != 0.4 {
		t.Fatalf("unexpected request %+v", received)
	}
	if received.ResponseFormat != nil {
		t.Fatalf("raw client should not request a response format, got %v", received.ResponseFormat)
	}
	if len(received.Messages) != 2 || received.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages %+v", received.Messages)
	}
}

func TestStructuredClientRequestsJSONObject(t *testing.T) {
	var received chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		completionHandler(t, `{"ok":true}`)(w, r)
	}))
	defer server.Close()

	client := NewStructuredClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if _, err := client.Create(context.Background(), "override/model", []Message{User("hi")}, Params{}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if received.ResponseFormat["type"] != jsonResponseType {
		t.Fatalf("expected json_object response format, got %v", received.ResponseFormat)
	}
	if received.Model != "override/model" {
		t.Fatalf("expected explicit model to win, got %q", received.Model)
	}
}

func TestSelectHonoursStructuredOutput(t *testing.T) {
	if _, ok := Select(config.LLMConfig{StructuredOutput: true}).(*StructuredClient); !ok {
		t.Fatal("expected structured client")
	}
	if _, ok := Select(config.LLMConfig{StructuredOutput: false}).(*RawClient); !ok {
		t.Fatal("expected raw client")
	}
}

func TestCreateErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		header     string
		body       string
		marker     error
		retryAfter time.Duration
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, header: "2", body: `{"error":"slow down"}`, marker: services.ErrTransient, retryAfter: 2 * time.Second},
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", marker: services.ErrTransient},
		{name: "request timeout", status: http.StatusRequestTimeout, body: "timeout", marker: services.ErrTransient},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"unauthorized"}`, marker: services.ErrPermanent},
		{name: "bad request", status: http.StatusBadRequest, body: "nope", marker: services.ErrPermanent},
		{name: "undecodable", status: http.StatusOK, body: "not json", marker: services.ErrPermanent},
		{name: "provider error", status: http.StatusOK, body: `{"error":{"message":"model not found"}}`, marker: services.ErrPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewRawClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
			_, err := client.Create(context.Background(), "", []Message{User("hi")}, Params{})
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			var hint retry.RetryAfterHint
			if tt.retryAfter > 0 {
				if !errors.As(err, &hint) || hint.RetryAfter() != tt.retryAfter {
					t.Fatalf("expected retry-after hint %s, got %v", tt.retryAfter, err)
				}
			}
		})
	}
}

func TestCreateEmptyContent(t *testing.T) {
	tests := []struct {
		name   string
		finish string
		marker error
	}{
		{name: "length", finish: "length", marker: services.ErrTruncated},
		{name: "stop", finish: "stop", marker: services.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"choices": []any{map[string]any{
						"message":       map[string]any{"content": ""},
						"finish_reason": tt.finish,
					}},
				})
			}))
			defer server.Close()

			client := NewRawClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
			_, err := client.Create(context.Background(), "", []Message{User("hi")}, Params{})
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
		})
	}
}

func TestCreateRequiresAPIKey(t *testing.T) {
	client := NewRawClient(Config{Model: "demo"})
	_, err := client.Create(context.Background(), "", []Message{User("hi")}, Params{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCreateAcceptsAlternatePayloadShapes(t *testing.T) {
	tests := []struct {
		name   string
		choice map[string]any
	}{
		{name: "delta", choice: map[string]any{"delta": map[string]any{"content": `{"ok":true}`}}},
		{name: "text", choice: map[string]any{"text": `{"ok":true}`}},
		{name: "tool call", choice: map[string]any{"message": map[string]any{
			"tool_calls": []any{map[string]any{"type": "function", "function": map[string]any{"name": "emit", "arguments": `{"ok":true}`}}},
		}}},
		{name: "function call", choice: map[string]any{"message": map[string]any{
			"function_call": map[string]any{"name": "emit", "arguments": `{"ok":true}`},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{tt.choice}})
			}))
			defer server.Close()

			client := NewRawClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
			resp, err := client.Create(context.Background(), "", []Message{User("hi")}, Params{})
			if err != nil {
				t.Fatalf("Create returned error: %v", err)
			}
			if resp.Text != `{"ok":true}` {
				t.Fatalf("unexpected text %q", resp.Text)
			}
		})
	}
}

func TestRetryingClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("busy"))
			return
		}
		completionHandler(t, `{"ok":true}`)(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	policy := retry.DefaultPolicy()
	policy.Rand = func() float64 { return 0.5 }
	policy.Sleeper = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	client := WithRetry(NewRawClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"}), policy, logger)
	resp, err := client.Create(context.Background(), "", []Message{User("hi")}, Params{})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if resp.Text != `{"ok":true}` {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %v", slept)
	}
	if strings.Count(buf.String(), `"event_type":"llm_retry"`) != 2 {
		t.Fatalf("expected two retry log lines, got %s", buf.String())
	}
}

func TestRetryingClientStopsOnPermanentFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	policy := retry.DefaultPolicy()
	policy.Sleeper = func(context.Context, time.Duration) error { return nil }
	client := WithRetry(NewRawClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"}), policy, nil)
	_, err := client.Create(context.Background(), "", []Message{User("hi")}, Params{})
	if !errors.Is(err, services.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single call, got %d", got)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "plain", content: `{"ok":true}`},
		{name: "code fence", content: "```json\n{\"ok\":true}\n```"},
		{name: "not ok", content: `{"ok":false}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(completionHandler(t, tt.content))
			defer server.Close()

			client := NewStructuredClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
			err := HealthCheck(context.Background(), client, "")
			if tt.wantErr != (err != nil) {
				t.Fatalf("HealthCheck error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("unexpected seconds parse %s %v", d, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative values should be rejected")
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("garbage should be rejected")
	}
}
