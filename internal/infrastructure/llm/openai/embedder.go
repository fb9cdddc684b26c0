package openai

import (
	"context"
	"fmt"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/infrastructure/llm/backend"
)

type Embedder struct {
	client    *Client
	batchSize int
	guard     backend.DimensionGuard
}

func NewEmbedder(client *Client, batchSize int) *Embedder {
	return &Embedder{client: client, batchSize: batchSize}
}

func (e *Embedder) Name() string {
	if e.client.cfg.APIType == APITypeAzure {
		return "azure-openai"
	}
	return backendName
}

func (e *Embedder) Dimension() int { return e.guard.Dimension() }

func (e *Embedder) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	vectors, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type embeddingResponse struct {
	Data []struct {
		Index     int              `json:"index"`
		Embedding domain.Embedding `json:"embedding"`
	} `json:"data"`
}

func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := backend.CheckBatch("openai embed", texts); err != nil {
		return nil, err
	}

	endpoint := e.client.endpoint("embeddings", e.client.cfg.EmbedModel)
	out := make([]domain.Embedding, 0, len(texts))
	for _, span := range backend.Batches(len(texts), e.batchSize) {
		batch := texts[span[0]:span[1]]
		request := map[string]any{"input": batch}
		if e.client.cfg.APIType != APITypeAzure {
			request["model"] = e.client.cfg.EmbedModel
		}

		var response embeddingResponse
		if err := e.client.postJSON(ctx, endpoint, request, &response, "embed"); err != nil {
			return nil, backend.Translate(domain.ErrEmbeddingBackendUnavailable, "openai embed", err)
		}
		ordered, err := orderByIndex(response, len(batch))
		if err != nil {
			return nil, domain.WrapError(domain.ErrEmbeddingBackendUnavailable, "openai embed", err)
		}
		if err := e.guard.Check("openai embed", ordered); err != nil {
			return nil, err
		}
		out = append(out, ordered...)
	}
	return out, nil
}

// orderByIndex places each returned vector at its request position; the API
// does not promise to answer in input order.
func orderByIndex(response embeddingResponse, want int) ([]domain.Embedding, error) {
	if len(response.Data) != want {
		return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(response.Data))
	}
	ordered := make([]domain.Embedding, want)
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= want {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		if ordered[item.Index] != nil {
			return nil, fmt.Errorf("duplicate embedding index %d", item.Index)
		}
		ordered[item.Index] = item.Embedding
	}
	return ordered, nil
}
