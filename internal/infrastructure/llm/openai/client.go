// Package openai talks to OpenAI-compatible embedding and chat completion
// endpoints, including Azure OpenAI deployments.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/infrastructure/llm/backend"
	"github.com/kirillkom/document-qa/internal/infrastructure/resilience"
)

const (
	backendName = "openai"

	APITypeOpenAI = "openai"
	APITypeAzure  = "azure"

	DefaultBaseURL         = "https://api.openai.com/v1"
	DefaultAzureAPIVersion = "2023-07-01-preview"
)

// Config describes one OpenAI-compatible account. For Azure, EmbedModel and
// ChatModel are deployment names and BaseURL is the resource endpoint.
type Config struct {
	APIType    string
	BaseURL    string
	APIKey     string
	APIVersion string
	EmbedModel string
	ChatModel  string
	Timeout    time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) (*Client, error) {
	cfg.APIType = strings.ToLower(strings.TrimSpace(cfg.APIType))
	if cfg.APIType == "" {
		cfg.APIType = APITypeOpenAI
	}
	if cfg.APIType != APITypeOpenAI && cfg.APIType != APITypeAzure {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new openai client", fmt.Errorf("unknown api type %q", cfg.APIType))
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new openai client", fmt.Errorf("api key is required"))
	}
	if cfg.BaseURL == "" {
		if cfg.APIType == APITypeAzure {
			return nil, domain.WrapError(domain.ErrInvalidConfig, "new openai client", fmt.Errorf("azure endpoint is required"))
		}
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIType == APITypeAzure && cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAzureAPIVersion
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
	}, nil
}

// endpoint returns the URL for resource ("embeddings" or "chat/completions") on model.
func (c *Client) endpoint(resource, model string) string {
	if c.cfg.APIType == APITypeAzure {
		return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
			c.cfg.BaseURL, url.PathEscape(model), resource, url.QueryEscape(c.cfg.APIVersion))
	}
	return c.cfg.BaseURL + "/" + resource
}

func (c *Client) headers() map[string]string {
	if c.cfg.APIType == APITypeAzure {
		return map[string]string{"api-key": c.cfg.APIKey}
	}
	return map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any, out any, operation string) error {
	_, err := resilience.Do(ctx, c.executor, backendName+"."+operation, backend.Classify, func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, backend.PostJSON(callCtx, c.httpClient, backendName, endpoint, c.headers(), payload, out, operation)
	})
	return err
}
