package session

import (
	"context"
	"sync"

	"studytrack/pkg/core"
)

// MemoryStore is an in-memory implementation of SessionStore, used in tests
// and single-node development setups.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	closed   bool
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*core.Session),
	}
}

func (m *MemoryStore) Create(ctx context.Context, session *core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.ErrStoreClosed
	}
	if _, exists := m.sessions[session.UserID]; exists {
		return core.ErrSessionExists
	}
	m.sessions[session.UserID] = clone(session)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, core.ErrStoreClosed
	}
	session, exists := m.sessions[userID]
	if !exists {
		return nil, core.ErrNoSession
	}
	return clone(session), nil
}

func (m *MemoryStore) Update(ctx context.Context, session *core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.ErrStoreClosed
	}
	if _, exists := m.sessions[session.UserID]; !exists {
		return core.ErrNoSession
	}
	m.sessions[session.UserID] = clone(session)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.ErrStoreClosed
	}
	delete(m.sessions, userID)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.sessions = nil
	return nil
}

// clone copies a session so callers never share slices with the store.
func clone(s *core.Session) *core.Session {
	c := *s
	if s.Goals != nil {
		c.Goals = append([]core.Goal(nil), s.Goals...)
	}
	if s.MoodIDs != nil {
		c.MoodIDs = append([]string(nil), s.MoodIDs...)
	}
	if s.LastPausedAt != nil {
		t := *s.LastPausedAt
		c.LastPausedAt = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return &c
}
