package domain

import "time"

// Document is the extracted plain text of one uploaded file.
type Document struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type,omitempty"`
	PageCount int       `json:"page_count"`
	Text      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`

	// PageStarts holds the rune offset at which each page begins, in page order.
	PageStarts []int `json:"-"`
}

// PageAt returns the 1-based page containing the rune offset, or 0 without a page map.
func (d *Document) PageAt(offset int) int {
	if d == nil || len(d.PageStarts) == 0 {
		return 0
	}
	page := 0
	for i, start := range d.PageStarts {
		if start > offset {
			break
		}
		page = i + 1
	}
	if page == 0 {
		return 1
	}
	return page
}

// Segment is a contiguous rune span [Start, End) of a document's text.
type Segment struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Page       int    `json:"page,omitempty"`
	Text       string `json:"text"`
}

type Embedding []float32

type IndexEntry struct {
	Segment Segment
	Vector  Embedding
}

// IndexHandle is an opaque reference to the live index of one session.
type IndexHandle string
