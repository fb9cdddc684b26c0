package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/core/ports"
	"github.com/kirillkom/document-qa/internal/observability/metrics"
)

type RouterOptions struct {
	APIKey           string
	MaxUploadBytes   int64
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
}

type Router struct {
	sessions  *SessionRegistry
	extractor ports.TextExtractor
	metrics   *metrics.ServerMetrics
	logger    *slog.Logger
	opts      RouterOptions
}

func NewRouter(
	sessions *SessionRegistry,
	extractor ports.TextExtractor,
	serverMetrics *metrics.ServerMetrics,
	logger *slog.Logger,
	opts RouterOptions,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.BackpressureWait <= 0 {
		opts.BackpressureWait = 250 * time.Millisecond
	}
	return &Router{
		sessions:  sessions,
		extractor: extractor,
		metrics:   serverMetrics,
		logger:    logger,
		opts:      opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("POST /v1/sessions", rt.createSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", rt.deleteSession)
	mux.HandleFunc("POST /v1/sessions/{id}/documents", rt.uploadDocument)
	mux.HandleFunc("POST /v1/sessions/{id}/questions", rt.askQuestion)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.BackpressureWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	handler = bearerAuthMiddleware(rt.opts.APIKey, []string{"/healthz", "/metrics"}, handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": rt.sessions.Len()})
}

func (rt *Router) createSession(w http.ResponseWriter, _ *http.Request) {
	id, err := rt.sessions.Create()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (rt *Router) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.sessions.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type buildResponse struct {
	Handle   domain.IndexHandle `json:"handle"`
	Document *domain.Document   `json:"document"`
	Segments int                `json:"segments"`
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if r.ContentLength > rt.opts.MaxUploadBytes {
		writeError(w, &http.MaxBytesError{Limit: rt.opts.MaxUploadBytes})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, err)
			return
		}
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("multipart field 'file' is required")))
		return
	}
	defer file.Close()

	doc, err := rt.extractor.Extract(r.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, err)
		return
	}

	var response buildResponse
	started := time.Now()
	err = rt.sessions.With(sessionID, func(session ports.DocumentSession) error {
		handle, err := session.Build(r.Context(), doc)
		if err != nil {
			return err
		}
		response = buildResponse{Handle: handle, Document: doc, Segments: session.SegmentCount()}
		return nil
	})
	if rt.metrics != nil && !domain.IsKind(err, domain.ErrSessionNotFound) {
		rt.metrics.RecordIndexBuild(response.Segments, time.Since(started), err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response)
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req struct {
		Handle   domain.IndexHandle `json:"handle"`
		Question string             `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode question", fmt.Errorf("invalid json")))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode question", fmt.Errorf("question is required")))
		return
	}

	var answer *domain.Answer
	err := rt.sessions.With(sessionID, func(session ports.DocumentSession) error {
		var err error
		answer, err = session.Ask(r.Context(), req.Handle, req.Question)
		return err
	})
	if rt.metrics != nil && !domain.IsKind(err, domain.ErrSessionNotFound) {
		sources := 0
		if answer != nil {
			sources = len(answer.Sources)
		}
		rt.metrics.RecordQuestion(sources, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
