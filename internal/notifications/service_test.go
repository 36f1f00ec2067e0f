package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"brieflow/internal/config"
	"brieflow/internal/notifications"
	"brieflow/internal/pipeline"
	"brieflow/internal/testsupport"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func configFor(t *testing.T, topic string) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t, testsupport.WithNtfyTopic(topic))
}

func finishedRun(status pipeline.RunStatus) *pipeline.Context {
	rc := pipeline.New(pipeline.Inputs{Brief: "launch a cozy latte brand", Creativity: 2})
	rc.Status = status
	if status == pipeline.RunFailed {
		rc.ErrorMessage = "strategy: truncated response"
		return rc
	}
	_ = rc.FinalPrompts.Set([]pipeline.FinalPrompt{{ConceptTitle: "a"}, {ConceptTitle: "b"}})
	rc.RecordUsage("strategy", pipeline.UsageRecord{TotalTokens: 120, CostUSD: 0.0012, Calls: 1})
	return rc
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(configFor(t, ""))
	if svc.Enabled() {
		t.Fatal("expected disabled service without a topic")
	}
	if err := svc.NotifyRunFailed(context.Background(), finishedRun(pipeline.RunFailed)); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "run completed",
			send: func(s notifications.Service) error {
				return s.NotifyRunCompleted(context.Background(), finishedRun(pipeline.RunCompleted))
			},
			expectTitle:   "brieflow - Run Complete",
			expectMessage: "2 prompts, 120 tokens, $0.0012",
			expectTags:    "brieflow,run,completed",
		},
		{
			name: "run failed",
			send: func(s notifications.Service) error {
				return s.NotifyRunFailed(context.Background(), finishedRun(pipeline.RunFailed))
			},
			expectTitle:    "brieflow - Run Failed",
			expectMessage:  "Error: strategy: truncated response",
			expectTags:     "brieflow,run,failed",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "brieflow - Test",
			expectMessage:  "Notification system test",
			expectTags:     "brieflow,test",
			expectPriority: "low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, captured := newNtfyServer(t, http.StatusOK)
			if err := tt.send(notifications.NewService(configFor(t, server.URL))); err != nil {
				t.Fatalf("send: %v", err)
			}
			if len(*captured) != 1 {
				t.Fatalf("expected one request, got %d", len(*captured))
			}
			got := (*captured)[0]
			if got.title != tt.expectTitle || got.tags != tt.expectTags || got.priority != tt.expectPriority {
				t.Fatalf("unexpected headers %+v", got)
			}
			if !strings.Contains(got.body, tt.expectMessage) {
				t.Fatalf("expected body to contain %q, got %q", tt.expectMessage, got.body)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := newNtfyServer(t, http.StatusForbidden)
	err := notifications.NewService(configFor(t, server.URL)).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func TestRunNotifierHonoursOnSuccess(t *testing.T) {
	tests := []struct {
		name      string
		onSuccess bool
		status    pipeline.RunStatus
		want      int
	}{
		{"failed always notifies", false, pipeline.RunFailed, 1},
		{"completed notifies when enabled", true, pipeline.RunCompleted, 1},
		{"completed silent when disabled", false, pipeline.RunCompleted, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, captured := newNtfyServer(t, http.StatusOK)
			notifier := notifications.NewRunNotifier(notifications.NewService(configFor(t, server.URL)), tt.onSuccess)
			if err := notifier.RecordRun(context.Background(), finishedRun(tt.status)); err != nil {
				t.Fatalf("RecordRun: %v", err)
			}
			if len(*captured) != tt.want {
				t.Fatalf("expected %d notifications, got %d", tt.want, len(*captured))
			}
		})
	}
}
