package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns a set of independent sessions, addressed by ID.
// It uses reference counting to garbage collect unused per-session locks.
type Manager struct {
	loader ports.MachineLoader
	opts   []Option
	cfg    config

	mu       sync.Mutex            // Global lock for the maps
	sessions map[string]*Session   // Open sessions
	locks    map[string]*lockEntry // Active locks

	logger *slog.Logger
}

// NewManager creates a session manager. opts are applied to every session it creates.
func NewManager(loader ports.MachineLoader, opts ...Option) *Manager {
	cfg := newConfig(opts)
	return &Manager{
		loader:   loader,
		opts:     opts,
		cfg:      cfg,
		sessions: make(map[string]*Session),
		locks:    make(map[string]*lockEntry),
		logger:   cfg.logger,
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Create opens a new session. When definition is not empty it is loaded right away
// and the session is discarded if loading fails.
func (m *Manager) Create(ctx context.Context, definition []byte) (*Session, error) {
	s := New(m.loader, m.opts...)
	if len(definition) > 0 {
		if err := s.Load(ctx, definition); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	if _, dup := m.sessions[s.ID()]; dup {
		m.mu.Unlock()
		s.Close(ctx)
		return nil, fmt.Errorf("session %s already exists", s.ID())
	}
	m.sessions[s.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.gauge(count)
	m.logger.Info("session created", "session_id", s.ID())
	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context, s *Session) error {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		count := len(m.sessions)
		m.mu.Unlock()

		s.Close(ctx)
		m.gauge(count)
		m.logger.Info("session deleted", "session_id", sessionID)
		return nil
	})
}

// List returns the IDs of every open session, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WithLock executes fn while holding the lock for the session.
// Compound operations (e.g. send then snapshot) done inside fn are not interleaved
// with other WithLock callers on the same session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context, *Session) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	return fn(ctx, s)
}

// Close closes every session.
func (m *Manager) Close(ctx context.Context) {
	for _, id := range m.List() {
		if err := m.Delete(ctx, id); err != nil {
			m.logger.Warn("failed to close session", "session_id", id, "error", err)
		}
	}
}

func (m *Manager) gauge(count int) {
	if m.cfg.metrics != nil {
		m.cfg.metrics.ActiveSessions.Set(float64(count))
	}
}
