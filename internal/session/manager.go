package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager keeps sessions in memory. Idle sessions are dropped lazily when
// sessions are looked up or created; there is no background sweeper.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	adminSecret string
	idleTTL     time.Duration
	now         func() time.Time
}

func NewManager(adminSecret string, idleTTL time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		adminSecret: adminSecret,
		idleTTL:     idleTTL,
		now:         time.Now,
	}
}

// Get returns the live session with id and marks it as seen.
func (m *Manager) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	now := m.now()

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if m.expired(s, now) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, false
	}

	s.touch(now)
	return s, true
}

// Create starts a new session with a random id.
func (m *Manager) Create() *Session {
	now := m.now()
	s := newSession(uuid.NewString(), m.adminSecret, now)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(now)
	m.sessions[s.ID] = s
	return s
}

// GetOrCreate returns the session with id, or a new one when id is unknown
// or expired. created reports which.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := m.Get(id); ok {
		return s, false
	}
	return m.Create(), true
}

func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.idleTTL > 0 && s.idleSince(now) > m.idleTTL
}

func (m *Manager) sweepLocked(now time.Time) {
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
		}
	}
}
