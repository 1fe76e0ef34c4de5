package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Manager is the in-memory session registry. Sessions live for the life of
// the process; there is no persistence and no eviction.
type Manager struct {
	mu       sync.Mutex
	limits   Limits
	sessions map[string]*Session
}

// NewManager creates a registry that applies the given limits to every new
// session.
func NewManager(limits Limits) *Manager {
	return &Manager{
		limits:   limits,
		sessions: make(map[string]*Session),
	}
}

// Create registers a fresh session and returns it.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := New(uuid.NewString(), m.limits)
	m.sessions[s.ID] = s
	return s
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid session ID")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session")
	}
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
