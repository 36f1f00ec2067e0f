package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"brieflow/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	baseDir    string
	server     *httptest.Server
	calls      *atomic.Int64
}

type cliEnvOption func(*cliEnvSettings)

type cliEnvSettings struct {
	apiKey    string
	handler   http.HandlerFunc
	ntfyTopic string
}

func withAPIKey(key string) cliEnvOption {
	return func(s *cliEnvSettings) { s.apiKey = key }
}

func withLLMHandler(h http.HandlerFunc) cliEnvOption {
	return func(s *cliEnvSettings) { s.handler = h }
}

func withNtfyTopic(topic string) cliEnvOption {
	return func(s *cliEnvSettings) { s.ntfyTopic = topic }
}

func setupCLITestEnv(t *testing.T, opts ...cliEnvOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("BRIEFLOW_LLM_MODEL", "")

	settings := cliEnvSettings{apiKey: "test", handler: fakeLLMHandler(t)}
	for _, opt := range opts {
		opt(&settings)
	}

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		settings.handler(w, r)
	}))
	t.Cleanup(server.Close)

	configPath := filepath.Join(homeDir, ".config", "brieflow", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	cfgOpts := []testsupport.ConfigOption{
		testsupport.WithAPIKey(settings.apiKey),
		testsupport.WithLLMBaseURL(server.URL),
	}
	if settings.ntfyTopic != "" {
		cfgOpts = append(cfgOpts, testsupport.WithNtfyTopic(settings.ntfyTopic))
	}
	cfg := testsupport.NewConfig(t, cfgOpts...)
	testsupport.WriteConfig(t, configPath, cfg)

	return &cliTestEnv{
		configPath: configPath,
		baseDir:    testsupport.BaseDir(cfg),
		server:     server,
		calls:      &calls,
	}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// fakeLLMHandler answers chat completions by the role named in the system prompt.
func fakeLLMHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		system := req.Messages[0].Content
		user := req.Messages[len(req.Messages)-1].Content

		var content string
		switch {
		case strings.HasPrefix(system, "You are a senior brand strategist"):
			content = "Here's the result:\n```json\n" +
				`{"strategies":[{"name":"Cozy","core_message":"warmth in every cup"},{"name":"Bold","core_message":"wake up loud"}]}` +
				"\n```"
		case strings.HasPrefix(system, "You are an art director"):
			content = `{"mood":"warm","palette":["#aa5500"],"lighting":"golden hour"}`
		case strings.HasPrefix(system, "You are a creative director"):
			name := "Cozy"
			if strings.Contains(user, "Strategy: Bold") {
				name = "Bold"
			}
			content = `{"title":"` + name + ` scene","description":"a latte on a windowsill","subject":"latte"}`
		case strings.HasPrefix(system, "You are a critical reviewer"):
			content = `{"score": 8, "notes": "on brief"}`
		default:
			content = `{"ok":true}`
		}
		writeCompletion(w, content)
	}
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model": "demo/model",
		"choices": []any{
			map[string]any{
				"message":       map[string]any{"content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
	})
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
