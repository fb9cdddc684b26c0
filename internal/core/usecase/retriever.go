package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/core/ports"
)

// DefaultMinScore keeps every search hit.
var DefaultMinScore = math.Inf(-1)

type RetrievalPolicy struct {
	TopK     int
	MinScore float64
	// RequireGrounding turns an empty filtered result into ErrEmptyIndex.
	RequireGrounding bool
}

func DefaultRetrievalPolicy() RetrievalPolicy {
	return RetrievalPolicy{
		TopK:     5,
		MinScore: DefaultMinScore,
	}
}

func (p RetrievalPolicy) Validate() error {
	if p.TopK <= 0 {
		return domain.WrapError(domain.ErrInvalidConfig, "retrieval policy", fmt.Errorf("top k must be positive, got %d", p.TopK))
	}
	if math.IsNaN(p.MinScore) {
		return domain.WrapError(domain.ErrInvalidConfig, "retrieval policy", fmt.Errorf("min score is NaN"))
	}
	return nil
}

// Retrieve embeds the question with the embedder that built index and returns
// the best policy.TopK segments scoring at least policy.MinScore.
func Retrieve(
	ctx context.Context,
	index ports.VectorIndex,
	embedder ports.Embedder,
	question string,
	policy RetrievalPolicy,
) (domain.RetrievalResult, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("question is empty"))
	}

	queryVector, err := embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := index.Search(queryVector, policy.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	out := make(domain.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < policy.MinScore {
			continue
		}
		out = append(out, hit)
	}
	if len(out) == 0 && policy.RequireGrounding {
		return nil, domain.WrapError(domain.ErrEmptyIndex, "retrieve", fmt.Errorf("%d hits, none above min score %v", len(hits), policy.MinScore))
	}
	return out, nil
}
