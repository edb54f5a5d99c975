package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown or evicted session ids.
	ErrNotFound = errors.New("session not found")
)

// Manager is a concurrency-safe registry of independent sessions.
type Manager struct {
	ctx      context.Context
	upstream Upstream
	opts     Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager. Cancelling ctx cancels work in every session.
func NewManager(ctx context.Context, up Upstream, opts Options) *Manager {
	return &Manager{
		ctx:      ctx,
		upstream: up,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session and loads its year list. The session is kept
// even when the year list fails so that the load can be retried.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s := New(m.ctx, uuid.NewString(), m.upstream, m.opts)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	log.Printf("INFO: session %s created", s.ID())
	_, err := s.LoadYears(ctx)
	return s, err
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes and removes a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.Close()
	log.Printf("INFO: session %s deleted", id)
	return nil
}

// EvictIdle closes and removes sessions inactive since before cutoff and
// returns how many were evicted.
func (m *Manager) EvictIdle(cutoff time.Time) int {
	var idle []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	return len(idle)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
