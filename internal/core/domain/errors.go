package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig               = errors.New("invalid config")
	ErrInvalidInput                = errors.New("invalid input")
	ErrDimensionMismatch           = errors.New("dimension mismatch")
	ErrEmbeddingBackendUnavailable = errors.New("embedding backend unavailable")
	ErrRateLimited                 = errors.New("rate limited")
	ErrTimeout                     = errors.New("timeout")
	ErrIndexBuildFailed            = errors.New("index build failed")
	ErrUnknownHandle               = errors.New("unknown index handle")
	ErrLLMBackendUnavailable       = errors.New("llm backend unavailable")
	ErrEmptyIndex                  = errors.New("no grounding segments")
	ErrSessionNotFound             = errors.New("session not found")
	ErrSessionLimitReached         = errors.New("session limit reached")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Retryable reports whether err is a transient backend failure the caller may retry.
func Retryable(err error) bool {
	return IsKind(err, ErrRateLimited) ||
		IsKind(err, ErrTimeout) ||
		IsKind(err, ErrEmbeddingBackendUnavailable) ||
		IsKind(err, ErrLLMBackendUnavailable) ||
		IsKind(err, ErrSessionLimitReached)
}

// DimensionMismatchError reports a vector whose length differs from the index dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}
