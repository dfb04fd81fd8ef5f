// internal/pkg/session/manager.go
package session

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Persister stores session snapshots across restarts. Load returns (nil, nil)
// for unknown ids.
type Persister interface {
	Save(ctx context.Context, data *SessionData) error
	Load(ctx context.Context, id string) (*SessionData, error)
	Delete(ctx context.Context, id string) error
}

// Manager is the registry of live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    Persister // nil when persistence is disabled
	logger   *zap.Logger
}

func NewManager(store Persister, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		logger:   logger,
	}
}

// Resolve returns the session for id, restoring it from the store when it is
// not live. Unknown ids are never adopted: a fresh session with a new id is
// created instead and created is true.
func (m *Manager) Resolve(ctx context.Context, id string) (sess *Session, created bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			s.Touch()
			return s, false
		}
		if s := m.restore(ctx, id); s != nil {
			return s, false
		}
	}

	s := New(ulid.Make().String())
	s.MarkReady()
	m.add(s)
	return s, true
}

func (m *Manager) restore(ctx context.Context, id string) *Session {
	if m.store == nil {
		return nil
	}

	data, err := m.store.Load(ctx, id)
	if err != nil {
		m.logger.Warn("failed to restore session", zap.String("session_id", id), zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}

	s := New(id)
	s.Restore(data)

	m.mu.Lock()
	defer m.mu.Unlock()
	// a concurrent request may have restored it first
	if existing, ok := m.sessions[id]; ok {
		return existing
	}
	m.sessions[id] = s
	return s
}

func (m *Manager) add(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Persist saves the session, or deletes its snapshot once it is logged out.
// Failures are logged; the in-memory session stays authoritative.
func (m *Manager) Persist(ctx context.Context, s *Session) {
	if m.store == nil {
		return
	}

	data := s.Data()
	var err error
	if data.User == nil {
		err = m.store.Delete(ctx, data.ID)
	} else {
		err = m.store.Save(ctx, data)
	}
	if err != nil {
		m.logger.Warn("failed to persist session", zap.String("session_id", data.ID), zap.Error(err))
	}
}

// Sweep forgets sessions idle for longer than idle and returns how many went.
// Persisted snapshots are left to expire on their own TTL.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done.
// A non-positive interval disables sweeping.
func (m *Manager) RunSweeper(ctx context.Context, interval, idle time.Duration, onSweep func(live int)) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(idle); n > 0 {
				m.logger.Info("swept idle sessions", zap.Int("removed", n))
			}
			if onSweep != nil {
				onSweep(m.Count())
			}
		}
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
