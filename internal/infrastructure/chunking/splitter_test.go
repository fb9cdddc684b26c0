package chunking

import (
	"strings"
	"testing"

	"github.com/kirillkom/document-qa/internal/core/domain"
)

func TestNewSplitterRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		size, overlap int
	}{
		{0, 0},
		{-5, 0},
		{10, 10},
		{10, 11},
		{10, -1},
	}
	for _, tc := range cases {
		_, err := NewSplitter(tc.size, tc.overlap)
		if !domain.IsKind(err, domain.ErrInvalidConfig) {
			t.Fatalf("NewSplitter(%d, %d) expected ErrInvalidConfig, got %v", tc.size, tc.overlap, err)
		}
	}
}

func TestSplitCoversEveryRune(t *testing.T) {
	texts := []string{
		"a",
		"Paris is the capital of France. The Eiffel Tower is in Paris.",
		strings.Repeat("lorem ipsum dolor sit amet ", 40),
		"Привет, мир! Это тест с юникодом и пробелами   \n\n  в конце   ",
	}
	configs := [][2]int{{1, 0}, {7, 3}, {40, 5}, {64, 0}, {100, 99}}

	for _, text := range texts {
		for _, cfg := range configs {
			splitter, err := NewSplitter(cfg[0], cfg[1])
			if err != nil {
				t.Fatalf("NewSplitter() error = %v", err)
			}
			segments, err := splitter.Split(&domain.Document{ID: "doc-1", Text: text})
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}

			n := len([]rune(text))
			covered := make([]bool, n)
			prevStart := -1
			for _, seg := range segments {
				if seg.Start < prevStart {
					t.Fatalf("segments not ordered: %d after %d", seg.Start, prevStart)
				}
				prevStart = seg.Start
				if seg.End-seg.Start > cfg[0] {
					t.Fatalf("segment longer than chunk size: %+v", seg)
				}
				if seg.Text != string([]rune(text)[seg.Start:seg.End]) {
					t.Fatalf("segment text does not match its span: %+v", seg)
				}
				for i := seg.Start; i < seg.End; i++ {
					covered[i] = true
				}
			}
			for i, ok := range covered {
				if !ok {
					t.Fatalf("offset %d not covered (size=%d overlap=%d)", i, cfg[0], cfg[1])
				}
			}
			if got, want := len(segments), SegmentCount(n, cfg[0], cfg[1]); got != want {
				t.Fatalf("expected %d segments, got %d (size=%d overlap=%d)", want, got, cfg[0], cfg[1])
			}
		}
	}
}

func TestSplitKeepsShortTrailingWindow(t *testing.T) {
	splitter, err := NewSplitter(40, 5)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	text := "Paris is the capital of France. The Eiffel Tower is in Paris."
	segments, err := splitter.Split(&domain.Document{ID: "doc-1", Text: text})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != 40 {
		t.Fatalf("unexpected first segment bounds: %+v", segments[0])
	}
	if segments[1].Start != 35 || segments[1].End != len(text) {
		t.Fatalf("unexpected last segment bounds: %+v", segments[1])
	}
	if !strings.HasSuffix(segments[1].Text, "in Paris.") {
		t.Fatalf("trailing text dropped: %q", segments[1].Text)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	splitter, _ := NewSplitter(16, 4)
	doc := &domain.Document{ID: "doc-1", Text: strings.Repeat("abc def ghi ", 20)}
	first, _ := splitter.Split(doc)
	second, _ := splitter.Split(doc)
	if len(first) != len(second) {
		t.Fatalf("segment counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("segment %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSplitEmptyTextYieldsNoSegments(t *testing.T) {
	splitter, _ := NewSplitter(10, 2)
	segments, err := splitter.Split(&domain.Document{ID: "doc-1"})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("expected no segments, got %d", len(segments))
	}
}

func TestSplitAssignsPages(t *testing.T) {
	splitter, _ := NewSplitter(10, 0)
	doc := &domain.Document{
		ID:         "doc-1",
		Text:       strings.Repeat("a", 15) + strings.Repeat("b", 15),
		PageStarts: []int{0, 15},
	}
	segments, err := splitter.Split(doc)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	want := []int{1, 1, 2}
	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(segments))
	}
	for i, seg := range segments {
		if seg.Page != want[i] {
			t.Fatalf("segment %d: expected page %d, got %d", i, want[i], seg.Page)
		}
	}
}
