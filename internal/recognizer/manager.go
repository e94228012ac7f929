package recognizer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// sessionTTL is how long an idle live session survives before the
	// cleanup pass discards it. A teacher who walks away simply starts
	// a new one.
	sessionTTL = 30 * time.Minute

	cleanupInterval = 5 * time.Minute
)

// Manager owns all live sessions of the running server, keyed by session ID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a session manager and starts its expiry cleanup.
func NewManager() *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Start creates a new live session for a teacher and subject.
func (m *Manager) Start(teacherID, subjectID string) *Session {
	session := NewSession(uuid.New().String(), teacherID, subjectID)

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return session
}

// Get returns a session by ID, scoped to its owning teacher.
// Returns nil for unknown IDs and for other teachers' sessions.
func (m *Manager) Get(sessionID, teacherID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok || session.TeacherID != teacherID {
		return nil
	}
	return session
}

// Remove closes and discards a session. Safe to call for unknown IDs.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if ok {
		session.Close()
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stop terminates the cleanup goroutine and closes all sessions.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		session.Close()
		delete(m.sessions, id)
	}
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.expireIdle(time.Now().Add(-sessionTTL))
		}
	}
}

// expireIdle discards sessions idle since before the cutoff.
func (m *Manager) expireIdle(cutoff time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, session := range m.sessions {
		if session.IdleSince().Before(cutoff) {
			session.Close()
			delete(m.sessions, id)
		}
	}
}
