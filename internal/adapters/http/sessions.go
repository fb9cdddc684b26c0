package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-qa/internal/core/domain"
	"github.com/kirillkom/document-qa/internal/core/ports"
)

type SessionFactory func(sessionID string) (ports.DocumentSession, error)

type sessionEntry struct {
	mu       sync.Mutex
	session  ports.DocumentSession
	lastUsed time.Time
}

// SessionRegistry maps session IDs to independent sessions. Operations on one
// session are serialised by its own mutex; distinct sessions run in parallel.
type SessionRegistry struct {
	factory     SessionFactory
	maxSessions int
	idleTTL     time.Duration
	logger      *slog.Logger
	now         func() time.Time
	onResize    func(active int)

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type SessionRegistryOptions struct {
	MaxSessions int
	IdleTTL     time.Duration
	Logger      *slog.Logger
	// OnResize observes the session count after every change.
	OnResize func(active int)
}

func NewSessionRegistry(factory SessionFactory, options SessionRegistryOptions) *SessionRegistry {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	onResize := options.OnResize
	if onResize == nil {
		onResize = func(int) {}
	}
	return &SessionRegistry{
		factory:     factory,
		maxSessions: options.MaxSessions,
		idleTTL:     options.IdleTTL,
		logger:      logger,
		now:         time.Now,
		onResize:    onResize,
		sessions:    make(map[string]*sessionEntry),
	}
}

func (r *SessionRegistry) Create() (string, error) {
	if r.maxSessions > 0 && r.Len() >= r.maxSessions {
		r.EvictIdle()
	}

	id := uuid.NewString()
	session, err := r.factory(id)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	r.mu.Lock()
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		r.mu.Unlock()
		return "", domain.WrapError(domain.ErrSessionLimitReached, "create session", fmt.Errorf("%d sessions active", r.maxSessions))
	}
	r.sessions[id] = &sessionEntry{session: session, lastUsed: r.now()}
	active := len(r.sessions)
	r.mu.Unlock()

	r.onResize(active)
	return id, nil
}

// With runs fn while holding the session's lock.
func (r *SessionRegistry) With(id string, fn func(ports.DocumentSession) error) error {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "lookup session", fmt.Errorf("id=%s", id))
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.lastUsed = r.now()

	r.mu.Lock()
	_, live := r.sessions[id]
	r.mu.Unlock()
	if !live {
		return domain.WrapError(domain.ErrSessionNotFound, "lookup session", fmt.Errorf("id=%s", id))
	}
	return fn(entry.session)
}

func (r *SessionRegistry) Delete(id string) error {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	active := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "delete session", fmt.Errorf("id=%s", id))
	}

	entry.mu.Lock()
	entry.session.Discard()
	entry.mu.Unlock()

	r.onResize(active)
	return nil
}

// EvictIdle drops sessions unused for longer than the idle TTL. Sessions busy
// with a request are skipped.
func (r *SessionRegistry) EvictIdle() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var evicted []*sessionEntry
	for id, entry := range r.sessions {
		if !entry.mu.TryLock() {
			continue
		}
		if entry.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			evicted = append(evicted, entry)
			continue
		}
		entry.mu.Unlock()
	}
	active := len(r.sessions)
	r.mu.Unlock()

	for _, entry := range evicted {
		entry.session.Discard()
		entry.mu.Unlock()
	}
	if len(evicted) > 0 {
		r.logger.Info("sessions_evicted", "count", len(evicted), "active", active)
		r.onResize(active)
	}
	return len(evicted)
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (r *SessionRegistry) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle()
		}
	}
}

// Close discards every session.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	entries := r.sessions
	r.sessions = make(map[string]*sessionEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.mu.Lock()
		entry.session.Discard()
		entry.mu.Unlock()
	}
	r.onResize(0)
}
