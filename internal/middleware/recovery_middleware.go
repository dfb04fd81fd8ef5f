// internal/middleware/recovery_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"memoriza-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgPanic = "Something went wrong. Please try again."

// RecoveryMiddleware turns a handler panic into a 500 envelope and logs it with
// the session it happened in. http.ErrAbortHandler is passed on so net/http
// can drop the connection.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			fields := []zap.Field{
				zap.Any("panic", rec),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.ByteString("stack", debug.Stack()),
			}
			if sess, ok := GetSession(c); ok {
				fields = append(fields, zap.String("session_id", sess.ID()))
			}
			logger.Error("handler panicked", fields...)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, http.StatusInternalServerError, msgPanic, nil)
		}()
		c.Next()
	}
}
