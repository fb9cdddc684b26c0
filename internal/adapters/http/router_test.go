package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/document-qa/internal/core/ports"
	"github.com/kirillkom/document-qa/internal/core/usecase"
	"github.com/kirillkom/document-qa/internal/infrastructure/chunking"
	"github.com/kirillkom/document-qa/internal/infrastructure/embedding/hashing"
	"github.com/kirillkom/document-qa/internal/infrastructure/extractor"
	"github.com/kirillkom/document-qa/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/document-qa/internal/infrastructure/vector/memory"
	"github.com/kirillkom/document-qa/internal/observability/metrics"
)

type completerFake struct {
	err error
}

func (f completerFake) Complete(_ context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, "Paris is the capital") {
		return "Paris", nil
	}
	return "unknown", nil
}

func newTestSessionFactory(t *testing.T, completer ports.Completer) SessionFactory {
	t.Helper()
	embedder, err := hashing.New(hashing.DefaultDimension)
	if err != nil {
		t.Fatalf("hashing.New() error = %v", err)
	}
	return func(sessionID string) (ports.DocumentSession, error) {
		session, err := usecase.NewSessionIndex(usecase.SessionConfig{
			SessionID:    sessionID,
			ChunkSize:    40,
			ChunkOverlap: 5,
			Retrieval:    usecase.DefaultRetrievalPolicy(),
		}, usecase.SessionDeps{
			NewChunker: func(chunkSize, overlap int) (ports.Chunker, error) {
				splitter, err := chunking.NewSplitter(chunkSize, overlap)
				if err != nil {
					return nil, err
				}
				return splitter, nil
			},
			NewIndex:  func() ports.VectorIndex { return memory.New() },
			Embedder:  embedder,
			Completer: completer,
		})
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

func newTestRouter(t *testing.T, completer ports.Completer, opts RouterOptions) (http.Handler, *metrics.ServerMetrics) {
	t.Helper()
	registry := NewSessionRegistry(newTestSessionFactory(t, completer), SessionRegistryOptions{MaxSessions: 10})
	docs := extractor.NewRegistryWith(extractor.Format{
		Reader:     plaintext.NewReader(),
		Extensions: plaintext.Extensions,
		MimeTypes:  plaintext.MimeTypes,
	})
	serverMetrics := metrics.NewServerMetrics("docqa-test")
	return NewRouter(registry, docs, serverMetrics, nil, opts).Handler(), serverMetrics
}

func createSession(t *testing.T, handler http.Handler) string {
	t.Helper()
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	if res.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.SessionID == "" {
		t.Fatalf("decode session: %v %+v", err, body)
	}
	return body.SessionID
}

func uploadRequest(t *testing.T, sessionID, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func upload(t *testing.T, handler http.Handler, sessionID, content string) string {
	t.Helper()
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, uploadRequest(t, sessionID, "paris.txt", content))
	if res.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		Handle   string `json:"handle"`
		Segments int    `json:"segments"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if body.Handle == "" || body.Segments == 0 {
		t.Fatalf("unexpected upload response %+v", body)
	}
	return body.Handle
}

func ask(handler http.Handler, sessionID, handle, question string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(map[string]string{"handle": handle, "question": question})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/questions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeError(t *testing.T, res *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestSessionFlowAnswersQuestion(t *testing.T) {
	handler, _ := newTestRouter(t, completerFake{}, RouterOptions{})
	sessionID := createSession(t, handler)
	handle := upload(t, handler, sessionID, "Paris is the capital of France. The Eiffel Tower is in Paris.")

	res := ask(handler, sessionID, handle, "What is the capital of France?")
	if res.Code != http.StatusOK {
		t.Fatalf("ask: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var answer struct {
		Text    string `json:"text"`
		Sources []struct {
			Segment struct {
				Text string `json:"text"`
			} `json:"segment"`
			Score float64 `json:"score"`
		} `json:"sources"`
	}
	if err := json.NewDecoder(res.Body).Decode(&answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Text != "Paris" || len(answer.Sources) == 0 {
		t.Fatalf("unexpected answer %+v", answer)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}

	metricsRes := httptest.NewRecorder()
	handler.ServeHTTP(metricsRes, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(metricsRes.Body.String(), `docqa_rag_questions_total{service="docqa-test",status="success"} 1`) {
		t.Fatalf("expected question metric, got:\n%s", metricsRes.Body.String())
	}
}

func TestStaleHandleReturns404(t *testing.T) {
	handler, _ := newTestRouter(t, completerFake{}, RouterOptions{})
	sessionID := createSession(t, handler)
	first := upload(t, handler, sessionID, "Paris is the capital of France.")
	upload(t, handler, sessionID, "Berlin is the capital of Germany.")

	res := ask(handler, sessionID, first, "What is the capital of France?")
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for stale handle, got %d", res.Code)
	}
	if body := decodeError(t, res); body.Kind != "unknown_handle" || body.Retryable {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestEmptyDocumentReturns400AndKeepsIndex(t *testing.T) {
	handler, _ := newTestRouter(t, completerFake{}, RouterOptions{})
	sessionID := createSession(t, handler)
	handle := upload(t, handler, sessionID, "Paris is the capital of France.")

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, uploadRequest(t, sessionID, "empty.txt", "   "))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty document, got %d: %s", res.Code, res.Body.String())
	}
	if body := decodeError(t, res); body.Kind != "invalid_input" {
		t.Fatalf("unexpected error kind %+v", body)
	}

	if res := ask(handler, sessionID, handle, "What is the capital of France?"); res.Code != http.StatusOK {
		t.Fatalf("prior handle should still answer, got %d", res.Code)
	}
}

func TestUnsupportedUploadReturns400(t *testing.T) {
	handler, _ := newTestRouter(t, completerFake{}, RouterOptions{})
	sessionID := createSession(t, handler)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, uploadRequest(t, sessionID, "photo.png", "binary"))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadTooLargeReturns413(t *testing.T) {
	handler, _ := newTestRouter(t, completerFake{}, RouterOptions{MaxUploadBytes: 64})
	sessionID := createSession(t, handler)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, uploadRequest(t, sessionID, "big.txt", strings.Repeat("a", 1024)))
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestDeleteSessionDiscardsIt(t *testing.T) {
	handler, _ := newTestRouter(t, completerFake{}, RouterOptions{})
	sessionID := createSession(t, handler)
	handle := upload(t, handler, sessionID, "Paris is the capital of France.")

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+sessionID, nil))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}

	askRes := ask(handler, sessionID, handle, "What is the capital of France?")
	if askRes.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", askRes.Code)
	}
	if body := decodeError(t, askRes); body.Kind != "session_not_found" {
		t.Fatalf("unexpected error kind %+v", body)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	handler, _ := newTestRouter(t, completerFake{}, RouterOptions{})
	sessionID := createSession(t, handler)

	res := ask(handler, sessionID, "h", "  ")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestBearerAuthProtectsSessions(t *testing.T) {
	handler, _ := newTestRouter(t, completerFake{}, RouterOptions{APIKey: "secret"})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 with token, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("healthz should be open, got %d", res.Code)
	}
}
