// Package session keeps one workflow controller per browser session.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/memorial-automator/client/internal/workflow"
)

// DefaultMaxSessions limits live sessions to bound staged uploads.
const DefaultMaxSessions = 20

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Factory builds a controller that renders to r.
type Factory func(r workflow.Renderer) *workflow.Controller

// State holds a session's controller and its view broadcaster.
type State struct {
	ID         string
	Controller *workflow.Controller
	Views      *Broadcaster
	CreatedAt  time.Time

	// Ctx is cancelled when the session is deleted; in-flight submissions
	// run under it.
	Ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	lastAccessed time.Time
}

// LastAccessed returns the time the session was last used.
func (s *State) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccessed = now
	s.mu.Unlock()
}

// Manager handles active browser sessions.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*State
	factory     Factory
	maxSessions int
	logger      log.Logger
	now         func() time.Time
}

// NewManager creates a session manager.
func NewManager(factory Factory, maxSessions int, logger log.Logger) *Manager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Manager{
		sessions:    make(map[string]*State),
		factory:     factory,
		maxSessions: maxSessions,
		logger:      logger,
		now:         time.Now,
	}
}

// Create starts a new session, evicting the least recently used one when
// the limit is reached.
func (m *Manager) Create() *State {
	views := NewBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	now := m.now()

	s := &State{
		ID:           uuid.New().String(),
		Controller:   m.factory(views),
		Views:        views,
		CreatedAt:    now,
		Ctx:          ctx,
		cancel:       cancel,
		lastAccessed: now,
	}

	m.mu.Lock()
	var evicted *State
	if len(m.sessions) >= m.maxSessions {
		evicted = m.oldestLocked()
		if evicted != nil {
			delete(m.sessions, evicted.ID)
		}
	}
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	if evicted != nil {
		level.Info(m.logger).Log("msg", "session evicted", "session", evicted.ID)
		closeSession(evicted)
	}
	level.Info(m.logger).Log("msg", "session created", "session", s.ID, "active", count)
	return s
}

// Get returns a session and marks it as used.
func (m *Manager) Get(id string) (*State, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Touch marks a session as used. It reports whether the session exists.
func (m *Manager) Touch(id string) bool {
	_, err := m.Get(id)
	return err == nil
}

// Delete closes a session: the controller is reset (stopping its timer and
// releasing its file) and any in-flight submission is cancelled.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	closeSession(s)
	level.Info(m.logger).Log("msg", "session deleted", "session", id)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions removes sessions idle for longer than maxAge.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	var stale []*State
	for id, s := range m.sessions {
		if s.LastAccessed().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		closeSession(s)
	}
	if len(stale) > 0 {
		level.Info(m.logger).Log("msg", "cleaned up idle sessions", "count", len(stale))
	}
	return len(stale)
}

// CloseAll deletes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*State)
	m.mu.Unlock()

	for _, s := range all {
		closeSession(s)
	}
}

func (m *Manager) oldestLocked() *State {
	var oldest *State
	for _, s := range m.sessions {
		if oldest == nil || s.LastAccessed().Before(oldest.LastAccessed()) {
			oldest = s
		}
	}
	return oldest
}

func closeSession(s *State) {
	s.Controller.Reset()
	s.cancel()
	s.Views.Close()
}
