// internal/pkg/session/session.go
package session

import (
	"sync"
	"time"

	"memoriza-service/internal/domain/auth"
)

// Session holds the authentication state of one browser. Every change to the
// token bumps the generation so late permission fetches can tell whether the
// identity they were started for is still the current one.
type Session struct {
	id string

	mu         sync.RWMutex
	token      string
	user       *auth.Identity
	isLoading  bool
	confirmed  bool
	generation uint64
	lastSeen   time.Time
}

// New returns an empty session that is still resolving its initial state.
func New(id string) *Session {
	return &Session{id: id, isLoading: true, lastSeen: time.Now()}
}

func (s *Session) ID() string {
	return s.id
}

// Apply replaces token and identity and returns the new generation.
func (s *Session) Apply(token string, user *auth.Identity) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.user = user.Clone()
	s.isLoading = false
	s.confirmed = false
	s.generation++
	return s.generation
}

// Clear drops token and identity.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = nil
	s.isLoading = false
	s.confirmed = false
	s.generation++
}

// Confirm records that the backend accepted the token of generation gen. It
// reports false when the session has moved on.
func (s *Session) Confirm(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen || s.user == nil {
		return false
	}
	s.confirmed = true
	return true
}

// Confirmed reports whether the current token was accepted by the backend.
// Claims of an unconfirmed token are only good for display.
func (s *Session) Confirmed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confirmed && s.user != nil
}

// MarkReady ends the initial loading phase.
func (s *Session) MarkReady() {
	s.mu.Lock()
	s.isLoading = false
	s.mu.Unlock()
}

func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return State{
		Token:     s.token,
		User:      s.user.Clone(),
		IsLoading: s.isLoading,
		Confirmed: s.confirmed && s.user != nil,
	}
}

// Token returns the current bearer token, empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAdmin is derived from the identity on every call.
func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.IsAdmin()
}

// MergePermissions attaches group permissions to the identity, but only when
// the session is still at generation gen and logged in. It reports whether the
// merge happened.
func (s *Session) MergePermissions(gen uint64, perms []auth.ModulePermission, modules []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen || s.user == nil {
		return false
	}

	s.user.GroupPermissions = perms
	s.user.Modules = modules
	s.user.PermissionsLoaded = true
	return true
}

// UpdateUser applies fn to the current identity. It is a no-op without one.
func (s *Session) UpdateUser(fn func(user *auth.Identity)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return false
	}
	fn(s.user)
	return true
}

// Restore loads persisted state without starting a new generation.
func (s *Session) Restore(data *SessionData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = data.Token
	s.user = data.User.Clone()
	s.confirmed = data.Confirmed
	s.isLoading = false
}

// Data returns the persistable form of the session.
func (s *Session) Data() *SessionData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &SessionData{
		ID:        s.id,
		Token:     s.token,
		User:      s.user.Clone(),
		Confirmed: s.confirmed,
		SavedAt:   time.Now(),
	}
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}
