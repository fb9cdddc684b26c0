package plaintext

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/infrastructure/extractor"
)

func TestReadKeepsTextAndNormalisesNewlines(t *testing.T) {
	content, err := NewReader().Read(context.Background(), []byte("\ufeffline one\r\nline two\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(content.Pages) != 1 || content.Pages[0] != "line one\nline two\n" || content.Paged {
		t.Fatalf("unexpected content %+v", content)
	}
}

func TestReadRejectsBinary(t *testing.T) {
	_, err := NewReader().Read(context.Background(), []byte{0xff, 0xfe, 0x00})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRegistryDispatchesMarkdown(t *testing.T) {
	registry := extractor.NewRegistryWith(extractor.Format{Reader: NewReader(), Extensions: Extensions, MimeTypes: MimeTypes})
	doc, err := registry.Extract(context.Background(), "notes.md", "", bytes.NewReader([]byte("# Title\nBody")))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if doc.Text != "# Title\nBody" {
		t.Fatalf("unexpected text %q", doc.Text)
	}
}
