package memory

import (
	"fmt"
	"math"
	"sort"

	"github.com/kirillkom/document-qa/internal/core/domain"
)

// Index is an exhaustive cosine-similarity index held in process memory.
// It is not safe for concurrent use.
type Index struct {
	dimension int
	entries   []domain.IndexEntry
	norms     []float64
}

func New() *Index {
	return &Index{}
}

func (ix *Index) Len() int { return len(ix.entries) }

// Dimension is 0 until the first insert.
func (ix *Index) Dimension() int { return ix.dimension }

// Insert appends entries in order. The batch is validated as a whole so a rejected
// batch leaves the index untouched.
func (ix *Index) Insert(entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	dim := ix.dimension
	if dim == 0 {
		dim = len(entries[0].Vector)
	}
	for i, entry := range entries {
		if len(entry.Vector) == 0 {
			return domain.WrapError(domain.ErrInvalidInput, "insert entries", fmt.Errorf("entry %d has an empty vector", i))
		}
		if len(entry.Vector) != dim {
			return fmt.Errorf("insert entry %d: %w", i, &domain.DimensionMismatchError{Expected: dim, Actual: len(entry.Vector)})
		}
	}

	for _, entry := range entries {
		vector := make(domain.Embedding, len(entry.Vector))
		copy(vector, entry.Vector)
		ix.entries = append(ix.entries, domain.IndexEntry{Segment: entry.Segment, Vector: vector})
		ix.norms = append(ix.norms, magnitude(vector))
	}
	ix.dimension = dim
	return nil
}

// Search ranks all entries by cosine similarity to query. Equal scores keep insertion order.
func (ix *Index) Search(query domain.Embedding, k int) (domain.RetrievalResult, error) {
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "search index", fmt.Errorf("k must be positive, got %d", k))
	}
	if len(ix.entries) == 0 {
		return domain.RetrievalResult{}, nil
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("search index: %w", &domain.DimensionMismatchError{Expected: ix.dimension, Actual: len(query)})
	}

	queryNorm := magnitude(query)
	scored := make(domain.RetrievalResult, len(ix.entries))
	for i, entry := range ix.entries {
		scored[i] = domain.ScoredSegment{
			Segment: entry.Segment,
			Score:   cosine(query, entry.Vector, queryNorm, ix.norms[i]),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero magnitude.
func Cosine(a, b domain.Embedding) float64 {
	if len(a) != len(b) {
		return 0
	}
	return cosine(a, b, magnitude(a), magnitude(b))
}

func cosine(a, b domain.Embedding, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	score := dot / (normA * normB)
	if math.IsNaN(score) {
		return 0
	}
	return score
}

func magnitude(v domain.Embedding) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
