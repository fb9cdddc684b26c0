package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/core/ports"
)

type SessionConfig struct {
	// SessionID tags log lines and lifecycle events; optional.
	SessionID    string
	ChunkSize    int
	ChunkOverlap int
	Retrieval    RetrievalPolicy
}

type SessionDeps struct {
	NewChunker func(chunkSize, overlap int) (ports.Chunker, error)
	NewIndex   func() ports.VectorIndex
	Embedder   ports.Embedder
	Completer  ports.Completer
	Events     ports.EventPublisher
	Logger     *slog.Logger
}

// SessionIndex owns at most one live index for one user session. It is not safe
// for concurrent use; callers serialise Build, Ask and Discard.
type SessionIndex struct {
	cfg      SessionConfig
	chunker  ports.Chunker
	newIndex func() ports.VectorIndex
	embedder ports.Embedder
	composer *AnswerComposer
	events   ports.EventPublisher
	logger   *slog.Logger

	handle domain.IndexHandle
	index  ports.VectorIndex
	doc    *domain.Document
}

var _ ports.DocumentSession = (*SessionIndex)(nil)

func NewSessionIndex(cfg SessionConfig, deps SessionDeps) (*SessionIndex, error) {
	if deps.NewChunker == nil || deps.NewIndex == nil || deps.Embedder == nil || deps.Completer == nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new session index", fmt.Errorf("chunker, index, embedder and completer are required"))
	}
	if err := cfg.Retrieval.Validate(); err != nil {
		return nil, err
	}
	chunker, err := deps.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SessionID != "" {
		logger = logger.With("session_id", cfg.SessionID)
	}

	return &SessionIndex{
		cfg:      cfg,
		chunker:  chunker,
		newIndex: deps.NewIndex,
		embedder: deps.Embedder,
		composer: NewAnswerComposer(deps.Completer),
		events:   deps.Events,
		logger:   logger,
	}, nil
}

// Build indexes doc into a fresh index. Either the new index replaces the live
// one or, on any error, the live one stays untouched.
func (s *SessionIndex) Build(ctx context.Context, doc *domain.Document) (domain.IndexHandle, error) {
	started := time.Now()
	index, err := s.buildIndex(ctx, doc)
	if err != nil {
		s.logger.Warn("index_build_failed",
			"embedder", s.embedder.Name(),
			"duration_ms", time.Since(started).Milliseconds(),
			"error", err,
		)
		return "", fmt.Errorf("%w: %w", domain.ErrIndexBuildFailed, err)
	}

	handle := domain.IndexHandle(uuid.NewString())
	s.handle = handle
	s.index = index
	s.doc = doc

	s.logger.Info("index_built",
		"handle", handle,
		"document_id", doc.ID,
		"filename", doc.Filename,
		"segments", index.Len(),
		"dimension", index.Dimension(),
		"embedder", s.embedder.Name(),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	s.publish(ctx, domain.IndexEvent{
		Type:       domain.IndexEventBuilt,
		SessionID:  s.cfg.SessionID,
		Handle:     handle,
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Segments:   index.Len(),
		OccurredAt: time.Now().UTC(),
	})
	return handle, nil
}

func (s *SessionIndex) buildIndex(ctx context.Context, doc *domain.Document) (ports.VectorIndex, error) {
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "build index", fmt.Errorf("document text is empty"))
	}

	segments, err := s.chunker.Split(doc)
	if err != nil {
		return nil, fmt.Errorf("split document: %w", err)
	}
	texts := make([]string, len(segments))
	for i, segment := range segments {
		texts[i] = segment.Text
	}

	vectors, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed segments: %w", err)
	}
	if len(vectors) != len(segments) {
		return nil, domain.WrapError(domain.ErrEmbeddingBackendUnavailable, "embed segments", fmt.Errorf("expected %d embeddings, got %d", len(segments), len(vectors)))
	}

	entries := make([]domain.IndexEntry, len(segments))
	for i := range segments {
		entries[i] = domain.IndexEntry{Segment: segments[i], Vector: vectors[i]}
	}
	index := s.newIndex()
	if err := index.Insert(entries); err != nil {
		return nil, fmt.Errorf("insert segments: %w", err)
	}
	return index, nil
}

func (s *SessionIndex) Ask(ctx context.Context, handle domain.IndexHandle, question string) (*domain.Answer, error) {
	if s.index == nil || handle == "" || handle != s.handle {
		return nil, domain.WrapError(domain.ErrUnknownHandle, "ask", fmt.Errorf("handle %q is not the live index", handle))
	}

	started := time.Now()
	grounding, err := Retrieve(ctx, s.index, s.embedder, question, s.cfg.Retrieval)
	if err != nil {
		return nil, err
	}
	answer, err := s.composer.Compose(ctx, question, grounding)
	if err != nil {
		return nil, err
	}

	s.logger.Info("question_answered",
		"handle", handle,
		"retrieved", len(grounding),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return answer, nil
}

// Discard releases the live index. Calling it with nothing built is a no-op.
func (s *SessionIndex) Discard() {
	if s.index == nil {
		return
	}
	event := domain.IndexEvent{
		Type:       domain.IndexEventDiscarded,
		SessionID:  s.cfg.SessionID,
		Handle:     s.handle,
		DocumentID: s.doc.ID,
		Filename:   s.doc.Filename,
		OccurredAt: time.Now().UTC(),
	}
	s.handle = ""
	s.index = nil
	s.doc = nil
	s.publish(context.Background(), event)
}

func (s *SessionIndex) Current() (domain.IndexHandle, *domain.Document, bool) {
	if s.index == nil {
		return "", nil, false
	}
	return s.handle, s.doc, true
}

// SegmentCount is the number of segments in the live index, 0 when none is built.
func (s *SessionIndex) SegmentCount() int {
	if s.index == nil {
		return 0
	}
	return s.index.Len()
}

// publish never fails the caller; lifecycle events are informational.
func (s *SessionIndex) publish(ctx context.Context, event domain.IndexEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishIndexEvent(ctx, event); err != nil {
		s.logger.Warn("index_event_publish_failed", "type", event.Type, "error", err)
	}
}
