package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/document-qa/internal/core/domain"
)

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

// errorKinds is ordered: a failed build wraps both ErrIndexBuildFailed and its
// cause, and the cause decides the status.
var errorKinds = []struct {
	kind   error
	name   string
	status int
}{
	{domain.ErrInvalidInput, "invalid_input", http.StatusBadRequest},
	{domain.ErrSessionNotFound, "session_not_found", http.StatusNotFound},
	{domain.ErrUnknownHandle, "unknown_handle", http.StatusNotFound},
	{domain.ErrEmptyIndex, "empty_index", http.StatusUnprocessableEntity},
	{domain.ErrRateLimited, "rate_limited", http.StatusTooManyRequests},
	{domain.ErrTimeout, "timeout", http.StatusGatewayTimeout},
	{domain.ErrEmbeddingBackendUnavailable, "embedding_backend_unavailable", http.StatusBadGateway},
	{domain.ErrLLMBackendUnavailable, "llm_backend_unavailable", http.StatusBadGateway},
	{domain.ErrSessionLimitReached, "session_limit_reached", http.StatusServiceUnavailable},
	{domain.ErrDimensionMismatch, "dimension_mismatch", http.StatusInternalServerError},
	{domain.ErrInvalidConfig, "invalid_config", http.StatusInternalServerError},
	{domain.ErrIndexBuildFailed, "index_build_failed", http.StatusInternalServerError},
}

func mapErrorToHTTPStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	for _, k := range errorKinds {
		if domain.IsKind(err, k.kind) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

func errorKindName(err error) string {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return "payload_too_large"
	}
	for _, k := range errorKinds {
		if domain.IsKind(err, k.kind) {
			return k.name
		}
	}
	return "internal"
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError && errorKindName(err) == "internal" {
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{
		Error:     message,
		Kind:      errorKindName(err),
		Retryable: domain.Retryable(err),
	})
}
