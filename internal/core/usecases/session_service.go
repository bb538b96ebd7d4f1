package usecases

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"

	"github.com/samirrijal/geosketch/internal/core/domain"
	"github.com/samirrijal/geosketch/internal/core/ports"
	"github.com/samirrijal/geosketch/internal/pkg/metrics"
)

// LayerFactory creates the graphics layer of a new session.
type LayerFactory func(sessionID string) ports.GraphicsLayer

// SessionConfig configures new sessions.
type SessionConfig struct {
	DefaultRadius float64
	DebounceWait  time.Duration
	MaxSessions   int
	Clock         clock.Clock
}

// SessionService owns the sketch workflows, one per map client.
type SessionService struct {
	buffers   BufferComputer
	publisher ports.EventPublisher
	newLayer  LayerFactory
	cfg       SessionConfig

	mu       sync.RWMutex
	sessions map[string]*SketchWorkflow
}

// NewSessionService creates a new SessionService. publisher may be nil.
func NewSessionService(buffers BufferComputer, publisher ports.EventPublisher, newLayer LayerFactory, cfg SessionConfig) *SessionService {
	return &SessionService{
		buffers:   buffers,
		publisher: publisher,
		newLayer:  newLayer,
		cfg:       cfg,
		sessions:  make(map[string]*SketchWorkflow),
	}
}

// Create starts a session with empty shape lists.
func (s *SessionService) Create(ctx context.Context) (*SketchWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		return nil, domain.ErrTooManySessions
	}

	id := uuid.NewString()
	w := NewSketchWorkflow(id, s.buffers, s.newLayer(id), s.publisher, WorkflowConfig{
		Radius:       s.cfg.DefaultRadius,
		DebounceWait: s.cfg.DebounceWait,
		Clock:        s.cfg.Clock,
	})
	s.sessions[id] = w
	metrics.ActiveSessions.Set(float64(len(s.sessions)))

	slog.InfoContext(ctx, "session created", "session_id", id, "radius", w.Radius())
	return w, nil
}

// Get returns a session by id.
func (s *SessionService) Get(id string) (*SketchWorkflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return w, nil
}

// List returns all session ids in lexical order.
func (s *SessionService) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Destroy discards a session and any draw still waiting in its debouncer.
func (s *SessionService) Destroy(ctx context.Context, id string) error {
	s.mu.Lock()
	w, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
	}
	s.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	w.Close()
	slog.InfoContext(ctx, "session destroyed", "session_id", id)
	return nil
}

// Close destroys every session.
func (s *SessionService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*SketchWorkflow)
	s.mu.Unlock()

	for _, w := range sessions {
		w.Close()
	}
	metrics.ActiveSessions.Set(0)
}
