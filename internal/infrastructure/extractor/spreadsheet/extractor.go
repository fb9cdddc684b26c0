package spreadsheet

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/infrastructure/extractor"
)

var (
	Extensions = []string{".xlsx", ".xlsm"}
	MimeTypes  = []string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}
)

// Reader renders each worksheet as one page: a "Sheet: name" line followed by
// its rows, cells separated by tabs.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (Reader) Read(ctx context.Context, raw []byte) (extractor.Content, error) {
	book, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return extractor.Content{}, domain.WrapError(domain.ErrInvalidInput, "read spreadsheet", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	pages := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return extractor.Content{}, err
		}
		rows, err := book.GetRows(sheet)
		if err != nil {
			return extractor.Content{}, domain.WrapError(domain.ErrInvalidInput, "read spreadsheet", fmt.Errorf("sheet %q: %w", sheet, err))
		}
		var page strings.Builder
		page.WriteString("Sheet: " + sheet)
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if line == "" {
				continue
			}
			page.WriteString("\n" + line)
		}
		pages = append(pages, page.String())
	}
	return extractor.Content{Pages: pages, Paged: true}, nil
}
