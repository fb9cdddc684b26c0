// Package extractor turns uploaded files into domain documents. Format
// specific readers produce page texts; the registry joins them and records
// where every page starts.
package extractor

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/core/ports"
)

// PageSeparator is inserted between consecutive pages of one document.
const PageSeparator = "\n\n"

// Content is what a format reader pulls out of a file. Paged is false for
// formats with no meaningful page structure.
type Content struct {
	Pages []string
	Paged bool
}

type FormatReader interface {
	Read(ctx context.Context, raw []byte) (Content, error)
}

type Registry struct {
	byExtension map[string]FormatReader
	byMimeType  map[string]FormatReader
	now         func() time.Time
}

var _ ports.TextExtractor = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		byExtension: make(map[string]FormatReader),
		byMimeType:  make(map[string]FormatReader),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register binds reader to file extensions (".pdf") and MIME types.
func (r *Registry) Register(reader FormatReader, extensions []string, mimeTypes []string) {
	for _, ext := range extensions {
		r.byExtension[strings.ToLower(ext)] = reader
	}
	for _, mt := range mimeTypes {
		r.byMimeType[strings.ToLower(mt)] = reader
	}
}

func (r *Registry) Extract(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	reader, ok := r.lookup(filename, mimeType)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract document", fmt.Errorf("unsupported format: %s (%s)", filename, mimeType))
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read uploaded document: %w", err)
	}
	content, err := reader.Read(ctx, raw)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:        uuid.NewString(),
		Filename:  filepath.Base(filename),
		MimeType:  mimeType,
		PageCount: max(len(content.Pages), 1),
		CreatedAt: r.now(),
	}
	if content.Paged {
		doc.PageStarts = make([]int, len(content.Pages))
	}
	var text strings.Builder
	offset := 0
	for i, page := range content.Pages {
		if i > 0 {
			text.WriteString(PageSeparator)
			offset += utf8.RuneCountInString(PageSeparator)
		}
		if content.Paged {
			doc.PageStarts[i] = offset
		}
		text.WriteString(page)
		offset += utf8.RuneCountInString(page)
	}
	doc.Text = text.String()
	return doc, nil
}

func (r *Registry) lookup(filename, mimeType string) (FormatReader, bool) {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if reader, ok := r.byExtension[ext]; ok {
			return reader, true
		}
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		if reader, ok := r.byMimeType[strings.ToLower(mediaType)]; ok {
			return reader, true
		}
	}
	return nil, false
}
