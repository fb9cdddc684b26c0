package ports

import (
	"context"

	"github.com/kirillkom/document-qa/internal/core/domain"
)

// DocumentSession is the inbound contract of one user session: one live index at a time.
type DocumentSession interface {
	Build(ctx context.Context, doc *domain.Document) (domain.IndexHandle, error)
	Ask(ctx context.Context, handle domain.IndexHandle, question string) (*domain.Answer, error)
	Discard()
	Current() (domain.IndexHandle, *domain.Document, bool)
	SegmentCount() int
}
