package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/document-qa/internal/config"
	"github.com/kirillkom/document-qa/internal/core/domain"
)

func localConfig(ollamaURL string) config.Config {
	cfg := config.Defaults()
	cfg.EmbedderBackend = "local"
	cfg.CompleterBackend = "ollama"
	cfg.OllamaURL = ollamaURL
	cfg.ChunkSize = 40
	cfg.ChunkOverlap = 5
	return cfg
}

func TestNewSessionAnswersThroughOllama(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode generate request: %v", err)
		}
		prompt = body.Prompt
		_ = json.NewEncoder(w).Encode(map[string]any{"response": " Paris \n", "done": true})
	}))
	defer server.Close()

	app, err := New(localConfig(server.URL), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()
	if app.Events != nil {
		t.Fatalf("events should be disabled without NATS_URL")
	}

	session, err := app.NewSession("s-1")
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	doc, err := app.Extractor.Extract(context.Background(), "notes.txt", "text/plain", strings.NewReader("Paris is the capital of France."))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	handle, err := session.Build(context.Background(), doc)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	answer, err := session.Ask(context.Background(), handle, "What is the capital of France?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != "Paris" {
		t.Fatalf("expected trimmed answer, got %q", answer.Text)
	}
	if !strings.Contains(prompt, "Paris is the capital of France.") {
		t.Fatalf("prompt should carry the document context:\n%s", prompt)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.CompleterBackend = "ollama"
	cfg.ChunkOverlap = cfg.ChunkSize

	_, err := New(cfg, nil)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestNewRequiresOpenAIKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.OpenAIAPIKey = ""

	_, err := New(cfg, nil)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config without api key, got %v", err)
	}
}

func TestExtractorSupportsAllFormats(t *testing.T) {
	registry := NewExtractor()
	_, err := registry.Extract(context.Background(), "scan.bmp", "image/bmp", strings.NewReader("x"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected unsupported format to be invalid input, got %v", err)
	}
	if _, err := registry.Extract(context.Background(), "README", "text/markdown", strings.NewReader("# title")); err != nil {
		t.Fatalf("markdown by mime type: %v", err)
	}
}

func TestResilienceConfigConvertsUnits(t *testing.T) {
	cfg := config.Defaults()
	cfg.ResilienceRetryInitialBackoffMS = 150
	cfg.ResilienceBreakerOpenTimeoutSec = 7
	cfg.ResilienceBreakerMinRequests = -1

	got := resilienceConfig(cfg)
	if got.RetryInitialBackoff != 150*time.Millisecond || got.BreakerOpenTimeout != 7*time.Second {
		t.Fatalf("unexpected durations %+v", got)
	}
	if got.BreakerMinRequests != 0 {
		t.Fatalf("negative min requests should clamp to 0, got %d", got.BreakerMinRequests)
	}
}
