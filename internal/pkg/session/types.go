// internal/pkg/session/types.go
package session

import (
	"time"

	"memoriza-service/internal/domain/auth"
)

// State is a point-in-time copy of a session, safe to hand to consumers.
type State struct {
	Token     string         `json:"token,omitempty"`
	User      *auth.Identity `json:"user,omitempty"`
	IsLoading bool           `json:"isLoading"`
	Confirmed bool           `json:"confirmed"`
}

// IsAuthenticated reports whether the snapshot carries an identity.
func (s State) IsAuthenticated() bool {
	return s.User != nil
}

// SessionData is the persisted form of a session.
type SessionData struct {
	ID        string         `json:"id"`
	Token     string         `json:"token"`
	User      *auth.Identity `json:"user"`
	Confirmed bool           `json:"confirmed"`
	SavedAt   time.Time      `json:"saved_at"`
}
