package services

import (
	"cadete-dispatch-service/internal/domain"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

type session struct {
	builder  *TripBuilder
	lastUsed time.Time
}

// Sessions tracks one TripBuilder per dispatcher session. Sessions not used
// for a while are dropped by EvictIdle.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	deps     BuilderDeps
	now      func() time.Time
}

func NewSessions(deps BuilderDeps) *Sessions {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Sessions{sessions: make(map[string]*session), deps: deps, now: now}
}

func (s *Sessions) Create(mode Mode) (string, *TripBuilder) {
	id := uuid.NewString()
	b := NewTripBuilder(mode, s.deps)

	s.mu.Lock()
	s.sessions[id] = &session{builder: b, lastUsed: s.now()}
	s.mu.Unlock()

	return id, b
}

// Get returns the builder of session id and marks the session as used.
func (s *Sessions) Get(id string) (*TripBuilder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
	}
	sess.lastUsed = s.now()
	return sess.builder, nil
}

// Close cancels and forgets session id.
func (s *Sessions) Close(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		sess.builder.Cancel()
	}
	return ok
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle cancels and forgets sessions unused for longer than maxIdle.
func (s *Sessions) EvictIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	var idle []*TripBuilder
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			idle = append(idle, sess.builder)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, b := range idle {
		b.Cancel()
	}
	return len(idle)
}

// RunEviction sweeps idle sessions every interval until ctx is done.
func (s *Sessions) RunEviction(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(maxIdle); n > 0 {
				log.Printf("evicted idle sessions count=%d", n)
			}
		}
	}
}

// NewBuilder returns a builder sharing the sessions' collaborators but not
// registered under any id.
func (s *Sessions) NewBuilder(mode Mode) *TripBuilder {
	return NewTripBuilder(mode, s.deps)
}
