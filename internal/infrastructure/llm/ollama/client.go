package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/infrastructure/llm/backend"
	"github.com/kirillkom/document-qa/internal/infrastructure/resilience"
)

const backendName = "ollama"

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	_, err := resilience.Do(ctx, c.executor, backendName+"."+operation, backend.Classify, func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, backend.PostJSON(callCtx, c.httpClient, backendName, c.baseURL+path, nil, payload, out, operation)
	})
	return err
}

type Embedder struct {
	client    *Client
	batchSize int
	guard     backend.DimensionGuard
}

func NewEmbedder(client *Client, batchSize int) *Embedder {
	return &Embedder{client: client, batchSize: batchSize}
}

func (e *Embedder) Name() string { return backendName }

func (e *Embedder) Dimension() int { return e.guard.Dimension() }

func (e *Embedder) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	vectors, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := backend.CheckBatch("ollama embed", texts); err != nil {
		return nil, err
	}

	out := make([]domain.Embedding, 0, len(texts))
	for _, span := range backend.Batches(len(texts), e.batchSize) {
		request := map[string]any{
			"model": e.client.embedModel,
			"input": texts[span[0]:span[1]],
		}
		var response struct {
			Embeddings []domain.Embedding `json:"embeddings"`
		}
		if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
			return nil, backend.Translate(domain.ErrEmbeddingBackendUnavailable, "ollama embed", err)
		}
		if got, want := len(response.Embeddings), span[1]-span[0]; got != want {
			return nil, domain.WrapError(domain.ErrEmbeddingBackendUnavailable, "ollama embed", fmt.Errorf("expected %d embeddings, got %d", want, got))
		}
		if err := e.guard.Check("ollama embed", response.Embeddings); err != nil {
			return nil, err
		}
		out = append(out, response.Embeddings...)
	}
	return out, nil
}

type Completer struct {
	client *Client
}

func NewCompleter(client *Client) *Completer {
	return &Completer{client: client}
}

func (g *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", backend.Translate(domain.ErrLLMBackendUnavailable, "ollama generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}
