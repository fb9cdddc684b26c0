package backend

import (
	"fmt"
	"sync"

	"github.com/kirillkom/document-qa/internal/core/domain"
)

// DimensionGuard pins the embedding dimension to the first non-empty response
// a remote client sees and rejects any later response of another size.
type DimensionGuard struct {
	mu        sync.Mutex
	dimension int
}

func (g *DimensionGuard) Dimension() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dimension
}

func (g *DimensionGuard) Check(operation string, vectors []domain.Embedding) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, vector := range vectors {
		if len(vector) == 0 {
			return domain.WrapError(domain.ErrEmbeddingBackendUnavailable, operation, fmt.Errorf("empty embedding at position %d", i))
		}
		if g.dimension == 0 {
			g.dimension = len(vector)
			continue
		}
		if len(vector) != g.dimension {
			return fmt.Errorf("%s: embedding %d: %w", operation, i, &domain.DimensionMismatchError{Expected: g.dimension, Actual: len(vector)})
		}
	}
	return nil
}

// CheckBatch validates request texts before any network call is made.
func CheckBatch(operation string, texts []string) error {
	for i, text := range texts {
		if text == "" {
			return domain.WrapError(domain.ErrInvalidInput, operation, fmt.Errorf("text %d is empty", i))
		}
	}
	return nil
}

// Batches splits n items into consecutive [start, end) ranges of at most size items.
func Batches(n, size int) [][2]int {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}
	out := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}
