package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapErrorKeepsKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(ErrEmbeddingBackendUnavailable, "embed segments", cause)

	if !IsKind(err, ErrEmbeddingBackendUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("wrapped error lost kind or cause: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "embed segments: embedding backend unavailable") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if WrapError(ErrTimeout, "op", nil) != nil {
		t.Fatalf("wrapping nil must stay nil")
	}
}

func TestBuildFailureCarriesInnerKind(t *testing.T) {
	inner := WrapError(ErrRateLimited, "embed", errors.New("429"))
	err := fmt.Errorf("%w: %w", ErrIndexBuildFailed, inner)

	if !IsKind(err, ErrIndexBuildFailed) || !IsKind(err, ErrRateLimited) {
		t.Fatalf("expected both kinds, got %v", err)
	}
	if !Retryable(err) {
		t.Fatalf("rate limited build failure should be retryable")
	}
}

func TestRetryable(t *testing.T) {
	retryable := []error{ErrRateLimited, ErrTimeout, ErrEmbeddingBackendUnavailable, ErrLLMBackendUnavailable, ErrSessionLimitReached}
	for _, kind := range retryable {
		if !Retryable(WrapError(kind, "op", errors.New("x"))) {
			t.Fatalf("%v should be retryable", kind)
		}
	}
	permanent := []error{ErrInvalidInput, ErrInvalidConfig, ErrDimensionMismatch, ErrUnknownHandle, ErrEmptyIndex, ErrSessionNotFound}
	for _, kind := range permanent {
		if Retryable(WrapError(kind, "op", errors.New("x"))) {
			t.Fatalf("%v should not be retryable", kind)
		}
	}
}

func TestDimensionMismatchError(t *testing.T) {
	err := fmt.Errorf("insert: %w", &DimensionMismatchError{Expected: 384, Actual: 3})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch kind")
	}
	var typed *DimensionMismatchError
	if !errors.As(err, &typed) || typed.Expected != 384 || typed.Actual != 3 {
		t.Fatalf("expected typed error, got %v", err)
	}
}
