package chunking

import (
	"fmt"

	"github.com/kirillkom/document-qa/internal/core/domain"
)

// Splitter cuts text into fixed-size rune windows that overlap by Overlap runes.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new splitter", fmt.Errorf("chunk size must be positive, got %d", chunkSize))
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "new splitter", fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap))
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}, nil
}

// Split never trims or drops text: every rune of doc.Text lands in at least one segment.
func (s *Splitter) Split(doc *domain.Document) ([]domain.Segment, error) {
	if doc == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "split document", fmt.Errorf("document is nil"))
	}
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := s.ChunkSize - s.Overlap
	out := make([]domain.Segment, 0, SegmentCount(len(runes), s.ChunkSize, s.Overlap))
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, domain.Segment{
			DocumentID: doc.ID,
			Index:      len(out),
			Start:      start,
			End:        end,
			Page:       doc.PageAt(start),
			Text:       string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return out, nil
}

// SegmentCount is the number of segments Split yields for a text of n runes.
func SegmentCount(n, chunkSize, overlap int) int {
	if n <= 0 || chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return 0
	}
	if n <= chunkSize {
		return 1
	}
	step := chunkSize - overlap
	return (n-chunkSize+step-1)/step + 1
}
