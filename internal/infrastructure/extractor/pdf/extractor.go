package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/infrastructure/extractor"
)

var (
	Extensions = []string{".pdf"}
	MimeTypes  = []string{"application/pdf"}
)

// Reader extracts the plain text of every page. Pages without a content
// stream still count, so page numbers match the viewer.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (Reader) Read(ctx context.Context, raw []byte) (content extractor.Content, err error) {
	if len(raw) == 0 {
		return extractor.Content{}, domain.WrapError(domain.ErrInvalidInput, "read pdf", fmt.Errorf("empty file"))
	}
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = domain.WrapError(domain.ErrInvalidInput, "read pdf", fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return extractor.Content{}, domain.WrapError(domain.ErrInvalidInput, "read pdf", err)
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return extractor.Content{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return extractor.Content{}, domain.WrapError(domain.ErrInvalidInput, "read pdf", fmt.Errorf("page %d: %w", i, err))
		}
		pages = append(pages, strings.ToValidUTF8(text, ""))
	}
	return extractor.Content{Pages: pages, Paged: true}, nil
}
