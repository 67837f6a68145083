package player

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/livetv/internal/backend"
	"github.com/stwalsh4118/livetv/internal/logger"
	"github.com/stwalsh4118/livetv/internal/models"
	"github.com/stwalsh4118/livetv/internal/resolver"
)

// Session is one selected event's playback. It is owned by the controller
// and lives until the next selection or Close.
type Session struct {
	ID        string
	Event     models.Event
	Resolved  resolver.Resolved
	StartedAt time.Time

	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	backend      backend.Backend
	url          string
	disposers    []backend.Disposer
	fallbackUsed bool
}

func newSession(parent context.Context, event models.Event, gen uint64) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:        uuid.NewString(),
		Event:     event,
		StartedAt: time.Now().UTC(),
		gen:       gen,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Live mirrors the event's status
func (s *Session) Live() bool {
	return s.Event.IsLive()
}

// Backend returns the bound backend, nil before one was built
func (s *Session) Backend() backend.Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend
}

// URL returns the URL currently loaded into the backend
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *Session) bind(b backend.Backend, d backend.Disposer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend = b
	s.disposers = append(s.disposers, d)
}

func (s *Session) setURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
}

// claimNetworkFallback marks the same-instance fallback as used; it returns false when already claimed
func (s *Session) claimNetworkFallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fallbackUsed {
		return false
	}
	s.fallbackUsed = true
	return true
}

// unbind disposes subscriptions and destroys the backend, leaving the session without one
func (s *Session) unbind(ctx context.Context) error {
	s.mu.Lock()
	disposers := s.disposers
	b := s.backend
	s.disposers = nil
	s.backend = nil
	s.mu.Unlock()

	for _, d := range disposers {
		d()
	}
	if b == nil {
		return nil
	}
	return b.Destroy(ctx)
}

// teardown cancels in-flight work and releases the backend. Destroy errors are logged and swallowed.
func (s *Session) teardown(ctx context.Context) {
	s.cancel()
	if err := s.unbind(ctx); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("session_id", s.ID).
			Str("event_id", s.Event.ID).
			Msg("Failed to destroy backend during teardown")
		return
	}
	logger.Log.Debug().
		Str("session_id", s.ID).
		Str("event_id", s.Event.ID).
		Msg("Playback session torn down")
}
