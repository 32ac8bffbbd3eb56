package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session is one customer's pass through the wizard.
type Session struct {
	ID        string    `json:"id"`
	Business  string    `json:"business"`
	Step      Step      `json:"step"`
	Form      Form      `json:"form"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession starts a session on the first step.
func NewSession(business string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Business:  business,
		Step:      StepService,
		Form:      NewForm(),
		StartedAt: now,
		UpdatedAt: now,
	}
}

// SetStep updates the step.
func (s *Session) SetStep(step Step) {
	s.Step = step
	s.UpdatedAt = time.Now()
}

// Touch records an update.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now()
}

// IsExpired checks if session has expired.
func (s *Session) IsExpired(timeout time.Duration) bool {
	return time.Since(s.UpdatedAt) > timeout
}

// SessionStore persists wizard sessions.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	timeout  time.Duration
}

// NewMemoryStore creates a store that forgets sessions idle longer than timeout.
func NewMemoryStore(timeout time.Duration) *MemoryStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		timeout:  timeout,
	}
}

// Get returns a copy of the session.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || s.IsExpired(m.timeout) {
		return nil, ErrSessionNotFound
	}
	cp := *s
	cp.Form.ServiceIDs = append([]string(nil), s.Form.ServiceIDs...)
	return &cp, nil
}

// Save stores a copy of the session.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	cp := *s
	cp.Form.ServiceIDs = append([]string(nil), s.Form.ServiceIDs...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &cp
	return nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Cleanup removes expired sessions.
func (m *MemoryStore) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.IsExpired(m.timeout) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
