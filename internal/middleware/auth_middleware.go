// internal/middleware/auth_middleware.go
package middleware

import (
	"fmt"

	"memoriza-service/internal/pkg/response"
	"memoriza-service/internal/service/auth"

	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	authService *auth.AuthService
}

func NewAuthMiddleware(authService *auth.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// RequireAuth rejects requests whose session holds no token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := GetSession(c)
		if !ok || sess.Token() == "" {
			response.Unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// RequireCapability requires action on module, as granted by the session's
// capability set. Owner admins pass every check.
func (m *AuthMiddleware) RequireCapability(module, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := GetSession(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}

		caps := m.authService.Capabilities(sess, module)
		if !caps.Allows(action) {
			response.Forbidden(c, fmt.Sprintf("missing permission %s on %s", action, module))
			return
		}

		c.Set("capabilities", caps)
		c.Next()
	}
}

// AdminOnly admits owner admins whose token the backend confirmed. Claims of
// an unconfirmed token are not enough for routes this service answers itself.
func (m *AuthMiddleware) AdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.RequireAuth(),
		func(c *gin.Context) {
			sess, _ := GetSession(c)
			if !m.authService.IsConfirmedAdmin(sess) {
				response.Forbidden(c, "admin access required")
				return
			}
			c.Next()
		},
	}
}

// WithCapability combines RequireAuth and RequireCapability.
func (m *AuthMiddleware) WithCapability(module, action string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.RequireAuth(),
		m.RequireCapability(module, action),
	}
}
