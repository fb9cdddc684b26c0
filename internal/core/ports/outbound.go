package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-qa/internal/core/domain"
)

// Embedder maps text to fixed-dimension vectors.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) (domain.Embedding, error)
	EmbedMany(ctx context.Context, texts []string) ([]domain.Embedding, error)
}

// Chunker splits a document into overlapping segments.
type Chunker interface {
	Split(doc *domain.Document) ([]domain.Segment, error)
}

// VectorIndex stores segment embeddings and answers nearest-neighbour queries.
type VectorIndex interface {
	Insert(entries []domain.IndexEntry) error
	Search(query domain.Embedding, k int) (domain.RetrievalResult, error)
	Len() int
	Dimension() int
}

// Completer is the language-model completion backend.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TextExtractor turns an uploaded file into a Document.
type TextExtractor interface {
	Extract(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// EventPublisher announces index lifecycle changes.
type EventPublisher interface {
	PublishIndexEvent(ctx context.Context, event domain.IndexEvent) error
}
