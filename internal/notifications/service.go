package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"brieflow/internal/config"
	"brieflow/internal/pipeline"
	"brieflow/internal/textutil"
)

const (
	userAgent      = "brieflow/0.1"
	defaultTimeout = 10 * time.Second
	briefPreview   = 80
)

// Service defines the notification surface used by the CLI and run sinks.
type Service interface {
	NotifyRunCompleted(ctx context.Context, rc *pipeline.Context) error
	NotifyRunFailed(ctx context.Context, rc *pipeline.Context) error
	TestNotification(ctx context.Context) error
	Enabled() bool
}

// NewService builds an ntfy-backed service when a topic is configured and a
// no-op otherwise.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Enabled() bool { return true }

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, rc *pipeline.Context) error {
	prompts, _ := rc.FinalPrompts.Get()
	total := rc.TotalUsage()
	var b strings.Builder
	fmt.Fprintf(&b, "Brief: %s\n", textutil.Preview(rc.Inputs.Brief, briefPreview))
	fmt.Fprintf(&b, "%d prompts, %d tokens, $%.4f", len(prompts), total.TotalTokens, total.CostUSD)
	if total.IsFallback {
		b.WriteString(" (includes fallbacks)")
	}
	return n.send(ctx, payload{
		title:   "brieflow - Run Complete",
		message: b.String(),
		tags:    []string{"brieflow", "run", "completed"},
	})
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, rc *pipeline.Context) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Brief: %s\n", textutil.Preview(rc.Inputs.Brief, briefPreview))
	reason := strings.TrimSpace(rc.ErrorMessage)
	if reason == "" {
		reason = "unknown error"
	}
	fmt.Fprintf(&b, "Error: %s\nRun: %s", reason, rc.RunID)
	return n.send(ctx, payload{
		title:    "brieflow - Run Failed",
		message:  b.String(),
		tags:     []string{"brieflow", "run", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "brieflow - Test",
		message:  "Notification system test",
		tags:     []string{"brieflow", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Enabled() bool                                                { return false }
func (noopService) NotifyRunCompleted(context.Context, *pipeline.Context) error { return nil }
func (noopService) NotifyRunFailed(context.Context, *pipeline.Context) error    { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
