package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tutortoise/inference-benchmark/benchmark"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")
	ErrRegistryClosed  = errors.New("session registry is closed")
)

// ControllerFactory builds the controller for a new session.
type ControllerFactory func(sessionID string) (*benchmark.Controller, error)

type Session struct {
	ID         string
	Controller *benchmark.Controller
	CreatedAt  time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// Context is cancelled when the session is removed. Background cycles run
// under it so they outlive the HTTP request that started them.
func (s *Session) Context() context.Context { return s.ctx }

// SessionRegistry owns every live benchmark session. Each session has its
// own controller and so its own model instance.
type SessionRegistry struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	newCtrl     ControllerFactory
	baseCtx     context.Context
	cancelAll   context.CancelFunc
	closed      bool
	log         *slog.Logger
	metrics     *registryMetrics
	lastErrors  []string
}

type registryMetrics struct {
	mu                sync.RWMutex
	Active            int
	TotalCreated      int64
	TotalRemoved      int64
	CreateFailures    int64
	ModelLoadFailures int64
	CyclesStarted     int64
	BusyRejections    int64
}

// MetricsSnapshot is a copy of the registry counters.
type MetricsSnapshot struct {
	Active            int      `json:"active_sessions"`
	MaxSessions       int      `json:"max_sessions"`
	TotalCreated      int64    `json:"total_created"`
	TotalRemoved      int64    `json:"total_removed"`
	CreateFailures    int64    `json:"create_failures"`
	ModelLoadFailures int64    `json:"model_load_failures"`
	CyclesStarted     int64    `json:"cycles_started"`
	BusyRejections    int64    `json:"busy_rejections"`
	RecentErrors      []string `json:"recent_errors,omitempty"`
}

func NewSessionRegistry(maxSessions int, newCtrl ControllerFactory, logger *slog.Logger) *SessionRegistry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SessionRegistry{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		newCtrl:     newCtrl,
		baseCtx:     ctx,
		cancelAll:   cancel,
		log:         logger,
		metrics:     &registryMetrics{},
	}
}

// Create registers a new session and starts loading its model in the
// background.
func (r *SessionRegistry) Create() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if len(r.sessions) >= r.maxSessions {
		r.countFailure()
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	ctrl, err := r.newCtrl(id)
	if err != nil {
		r.countFailure()
		r.recordErrorLocked(err)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	ctx, cancel := context.WithCancel(r.baseCtx)
	session := &Session{
		ID:         id,
		Controller: ctrl,
		CreatedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}
	r.sessions[id] = session

	r.metrics.mu.Lock()
	r.metrics.Active = len(r.sessions)
	r.metrics.TotalCreated++
	r.metrics.mu.Unlock()

	go r.initialize(session)

	r.log.Info("session created", "session", id, "active", len(r.sessions))
	return session, nil
}

func (r *SessionRegistry) initialize(s *Session) {
	err := s.Controller.Initialize(s.ctx)
	if err == nil || errors.Is(err, benchmark.ErrClosed) || errors.Is(err, context.Canceled) {
		return
	}

	r.metrics.mu.Lock()
	r.metrics.ModelLoadFailures++
	r.metrics.mu.Unlock()
	r.recordError(err)
}

func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// RequestNewImage starts a cycle on the session, counting the outcome.
func (r *SessionRegistry) RequestNewImage(id string) (*benchmark.Cycle, error) {
	session, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	cycle, err := session.Controller.RequestNewImage(session.ctx)

	r.metrics.mu.Lock()
	switch {
	case err == nil:
		r.metrics.CyclesStarted++
	case errors.Is(err, benchmark.ErrBusy):
		r.metrics.BusyRejections++
	}
	r.metrics.mu.Unlock()

	return cycle, err
}

// Remove cancels the session's background work and releases its model.
func (r *SessionRegistry) Remove(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	active := len(r.sessions)
	r.mu.Unlock()

	r.metrics.mu.Lock()
	r.metrics.Active = active
	r.metrics.TotalRemoved++
	r.metrics.mu.Unlock()

	session.cancel()
	if err := session.Controller.Close(); err != nil {
		r.recordError(err)
		return fmt.Errorf("failed to close session %s: %w", id, err)
	}

	r.log.Info("session removed", "session", id, "active", active)
	return nil
}

// Destroy removes every session. The registry rejects new sessions after.
func (r *SessionRegistry) Destroy() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if err := r.Remove(id); err != nil {
			r.log.Warn("failed to remove session", "session", id, "error", err)
		}
	}
	r.cancelAll()
}

func (r *SessionRegistry) countFailure() {
	r.metrics.mu.Lock()
	r.metrics.CreateFailures++
	r.metrics.mu.Unlock()
}

func (r *SessionRegistry) recordError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordErrorLocked(err)
}

func (r *SessionRegistry) recordErrorLocked(err error) {
	r.lastErrors = append(r.lastErrors, err.Error())
	if len(r.lastErrors) > 10 {
		r.lastErrors = r.lastErrors[1:]
	}
}

func (r *SessionRegistry) GetMetrics() MetricsSnapshot {
	r.mu.RLock()
	recent := append([]string(nil), r.lastErrors...)
	r.mu.RUnlock()

	r.metrics.mu.RLock()
	defer r.metrics.mu.RUnlock()
	return MetricsSnapshot{
		Active:            r.metrics.Active,
		MaxSessions:       r.maxSessions,
		TotalCreated:      r.metrics.TotalCreated,
		TotalRemoved:      r.metrics.TotalRemoved,
		CreateFailures:    r.metrics.CreateFailures,
		ModelLoadFailures: r.metrics.ModelLoadFailures,
		CyclesStarted:     r.metrics.CyclesStarted,
		BusyRejections:    r.metrics.BusyRejections,
		RecentErrors:      recent,
	}
}
