// internal/middleware/session_middleware.go
package middleware

import (
	"net/http"

	"memoriza-service/internal/config"
	"memoriza-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

const (
	SessionKey    = "session"
	SessionHeader = "X-Session-ID"
)

type SessionMiddleware struct {
	manager *session.Manager
	cookie  config.CookieConfig
}

func NewSessionMiddleware(manager *session.Manager, cookie config.CookieConfig) *SessionMiddleware {
	return &SessionMiddleware{
		manager: manager,
		cookie:  cookie,
	}
}

// Session attaches the caller's session to the context. The id is read from
// the X-Session-ID header first, then from the session cookie. Unknown ids get
// a fresh session and a new cookie.
func (m *SessionMiddleware) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id, _ = c.Cookie(m.cookie.Name)
		}

		sess, created := m.manager.Resolve(c.Request.Context(), id)
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(m.cookie.Name, sess.ID(), m.cookie.MaxAge, "/", m.cookie.Domain, m.cookie.Secure, true)
		}

		c.Header(SessionHeader, sess.ID())
		c.Set(SessionKey, sess)
		c.Next()
	}
}
