// Package hashing implements the in-process embedder: an unsigned feature-hashing
// bag of words projected into a fixed number of buckets and L2-normalised.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/kirillkom/document-qa/internal/core/domain"
)

const DefaultDimension = 384

type Embedder struct {
	dimension int
}

func New(dimension int) (*Embedder, error) {
	if dimension <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new hashing embedder", fmt.Errorf("dimension must be positive, got %d", dimension))
	}
	return &Embedder{dimension: dimension}, nil
}

func (e *Embedder) Name() string { return "local" }

func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed", fmt.Errorf("text is empty"))
	}
	return e.vectorize(text), nil
}

func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	for i, text := range texts {
		if text == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "embed batch", fmt.Errorf("text %d is empty", i))
		}
	}
	out := make([]domain.Embedding, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, e.vectorize(text))
	}
	return out, nil
}

// vectorize returns a zero vector for text without any letters or digits.
func (e *Embedder) vectorize(text string) domain.Embedding {
	counts := make([]float64, e.dimension)
	for _, token := range tokenize(text) {
		counts[bucket(token, e.dimension)]++
	}

	var norm float64
	for _, c := range counts {
		norm += c * c
	}
	out := make(domain.Embedding, e.dimension)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, c := range counts {
		out[i] = float32(c / norm)
	}
	return out
}

func bucket(token string, dimension int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(dimension))
}

func tokenize(s string) []string {
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
