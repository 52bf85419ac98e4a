package repositories

import (
	"context"
	"sync"

	"gymflow/internal/models"
)

// MemorySessionStore is an in-memory implementation of SessionStore, used
// in tests and when running without Redis.
type MemorySessionStore struct {
	sessions map[string]models.Session
	mu       sync.RWMutex
}

// NewMemorySessionStore creates a new instance of MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]models.Session),
	}
}

// Save stores the session.
func (s *MemorySessionStore) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session
	return nil
}

// Get fetches a session by ID. Expired sessions are dropped on read since
// there is no TTL sweeper here.
func (s *MemorySessionStore) Get(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if session.Expired() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return &session, nil
}

// Delete removes a session if it exists.
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}
