package backend

import (
	"errors"
	"testing"

	"github.com/kirillkom/document-qa/internal/core/domain"
)

func TestDimensionGuardPinsFirstDimension(t *testing.T) {
	var guard DimensionGuard
	if err := guard.Check("embed", []domain.Embedding{{1, 2, 3}}); err != nil {
		t.Fatalf("first check: %v", err)
	}
	if guard.Dimension() != 3 {
		t.Fatalf("Dimension() = %d, want 3", guard.Dimension())
	}
	err := guard.Check("embed", []domain.Embedding{{1, 2}})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	var mismatch *domain.DimensionMismatchError
	if !errors.As(err, &mismatch) || mismatch.Expected != 3 || mismatch.Actual != 2 {
		t.Fatalf("unexpected mismatch detail: %+v", mismatch)
	}
}

func TestCheckBatchRejectsEmptyText(t *testing.T) {
	if err := CheckBatch("embed", []string{"a", ""}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestBatches(t *testing.T) {
	got := Batches(5, 2)
	want := [][2]int{{0, 2}, {2, 4}, {4, 5}}
	if len(got) != len(want) {
		t.Fatalf("Batches() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Batches()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if len(Batches(3, 0)) != 1 {
		t.Fatalf("non-positive size should yield a single batch")
	}
}
