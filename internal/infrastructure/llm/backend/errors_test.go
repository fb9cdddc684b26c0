package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/sony/gobreaker/v2"
)

func TestTranslateMapsStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusUnauthorized, domain.ErrEmbeddingBackendUnavailable},
		{http.StatusForbidden, domain.ErrEmbeddingBackendUnavailable},
		{http.StatusBadGateway, domain.ErrEmbeddingBackendUnavailable},
		{http.StatusBadRequest, domain.ErrInvalidInput},
		{http.StatusUnprocessableEntity, domain.ErrInvalidInput},
		{http.StatusGatewayTimeout, domain.ErrTimeout},
	}
	for _, tc := range cases {
		err := Translate(domain.ErrEmbeddingBackendUnavailable, "embed", &HTTPStatusError{
			Backend:    "openai",
			Operation:  "embed",
			StatusCode: tc.status,
			Status:     http.StatusText(tc.status),
		})
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestTranslateDeadlineIsTimeout(t *testing.T) {
	err := Translate(domain.ErrLLMBackendUnavailable, "complete", fmt.Errorf("request: %w", context.DeadlineExceeded))
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout kind, got %v", err)
	}
}

func TestTranslateOpenCircuitIsUnavailable(t *testing.T) {
	err := Translate(domain.ErrLLMBackendUnavailable, "complete", gobreaker.ErrOpenState)
	if !errors.Is(err, domain.ErrLLMBackendUnavailable) {
		t.Fatalf("expected llm unavailable, got %v", err)
	}
	if !domain.Retryable(err) {
		t.Fatalf("open circuit should be reported as retryable by the caller")
	}
}

func TestTranslateKeepsExistingKind(t *testing.T) {
	inner := domain.WrapError(domain.ErrRateLimited, "embed", errors.New("slow down"))
	err := Translate(domain.ErrEmbeddingBackendUnavailable, "embed batch", inner)
	if err != inner {
		t.Fatalf("expected translated error to pass through unchanged, got %v", err)
	}
}

func TestPostJSONReturnsStatusErrorWithBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Fatalf("missing auth header, got %q", got)
		}
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	var out map[string]any
	err := PostJSON(context.Background(), server.Client(), "ollama", server.URL, map[string]string{"Authorization": "Bearer k"}, map[string]string{"a": "b"}, &out, "embed")
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status code %d", statusErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestPostJSONClientTimeoutTranslatesToTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := &http.Client{Timeout: 20 * time.Millisecond}
	var out map[string]any
	err := PostJSON(context.Background(), client, "openai", server.URL, nil, map[string]string{}, &out, "complete")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if translated := Translate(domain.ErrLLMBackendUnavailable, "complete", err); !errors.Is(translated, domain.ErrTimeout) {
		t.Fatalf("expected timeout kind, got %v", translated)
	}
}

func TestClassifyRetryableStatuses(t *testing.T) {
	if !Classify(&HTTPStatusError{StatusCode: http.StatusServiceUnavailable}).Retryable {
		t.Fatalf("503 should be retryable")
	}
	if Classify(&HTTPStatusError{StatusCode: http.StatusUnauthorized}).Retryable {
		t.Fatalf("401 should not be retryable")
	}
	if Classify(context.Canceled).RecordFailure {
		t.Fatalf("cancellation should not count against the breaker")
	}
}
