package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/infrastructure/extractor"
)

var (
	Extensions = []string{".txt", ".md", ".markdown", ".csv", ".log"}
	MimeTypes  = []string{"text/plain", "text/markdown", "text/csv"}
)

type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (Reader) Read(ctx context.Context, raw []byte) (extractor.Content, error) {
	if err := ctx.Err(); err != nil {
		return extractor.Content{}, err
	}
	if !utf8.Valid(raw) {
		return extractor.Content{}, domain.WrapError(domain.ErrInvalidInput, "read plain text", fmt.Errorf("document is not valid UTF-8"))
	}
	text := strings.TrimPrefix(string(raw), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return extractor.Content{Pages: []string{text}}, nil
}
