// internal/middleware/helpers.go
package middleware

import (
	"memoriza-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

// GetSession gets the session attached by SessionMiddleware
func GetSession(c *gin.Context) (*session.Session, bool) {
	v, exists := c.Get(SessionKey)
	if !exists {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok && sess != nil
}

// MustGetSession gets the session from context or panics
func MustGetSession(c *gin.Context) *session.Session {
	sess, ok := GetSession(c)
	if !ok {
		panic("session not found in context")
	}
	return sess
}

// GetToken returns the bearer token of the session, empty when logged out
func GetToken(c *gin.Context) string {
	sess, ok := GetSession(c)
	if !ok {
		return ""
	}
	return sess.Token()
}
