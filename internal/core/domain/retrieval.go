package domain

import "time"

type ScoredSegment struct {
	Segment Segment `json:"segment"`
	Score   float64 `json:"score"`
}

// RetrievalResult is ordered by descending score.
type RetrievalResult []ScoredSegment

func (r RetrievalResult) Segments() []Segment {
	out := make([]Segment, 0, len(r))
	for _, s := range r {
		out = append(out, s.Segment)
	}
	return out
}

type Answer struct {
	Text    string          `json:"text"`
	Sources []ScoredSegment `json:"sources"`
}

type IndexEventType string

const (
	IndexEventBuilt     IndexEventType = "index.built"
	IndexEventDiscarded IndexEventType = "index.discarded"
)

type IndexEvent struct {
	Type       IndexEventType `json:"type"`
	SessionID  string         `json:"session_id"`
	Handle     IndexHandle    `json:"handle,omitempty"`
	DocumentID string         `json:"document_id,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	Segments   int            `json:"segments,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
