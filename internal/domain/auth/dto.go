// internal/domain/auth/dto.go
package auth

// LoginRequest is both the inbound session login body and the payload
// forwarded to the backend.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// TokenLoginRequest carries a token obtained from an external identity provider.
type TokenLoginRequest struct {
	Token string `json:"token" binding:"required"`
}

// AuthResponse is the backend's answer to login and register.
type AuthResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// SessionView is what the session endpoints report about the caller.
type SessionView struct {
	IsLoading       bool           `json:"isLoading"`
	IsAuthenticated bool           `json:"isAuthenticated"`
	IsAdmin         bool           `json:"isAdmin"`
	User            map[string]any `json:"user"`
}
