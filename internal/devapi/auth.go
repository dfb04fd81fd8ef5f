// internal/devapi/auth.go
package devapi

import (
	"net/http"
	"strconv"
	"strings"

	"memoriza-service/internal/domain/auth"
	"memoriza-service/internal/pkg/identity"
	"memoriza-service/internal/pkg/jwt"
	"memoriza-service/internal/pkg/permission"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// bearer verifies the Authorization header and stores the claims and the
// decoded identity in the context.
func (s *Server) bearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			fail(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			fail(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		claims, err := s.tokens.Verifier.Verify(parts[1])
		if err != nil {
			s.logger.Debug("rejected bearer token", zap.Error(err))
			fail(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		c.Set(claimsKey, claims)
		c.Set(identityKey, identity.Normalize(jwt.Decode(parts[1])))
		c.Next()
	}
}

// require checks the carousel capability of the caller against its group,
// evaluated the same way the proxy does.
func (s *Server) require(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := mustClaims(c)
		user, _ := c.MustGet(identityKey).(*auth.Identity)

		if id, ok := claims.GroupID(); ok && !claims.IsOwner() {
			group, err := s.store.GetGroup(c.Request.Context(), id)
			if err != nil {
				s.logger.Warn("group lookup failed",
					zap.String("group_id", strconv.FormatInt(id, 10)),
					zap.Error(err),
				)
				fail(c, http.StatusForbidden, msgForbidden)
				return
			}
			user.GroupPermissions = group.Permissions
			user.PermissionsLoaded = true
		}

		caps := permission.Evaluate(permission.ModuleCarousel, user, user.IsAdmin())
		if !caps.Allows(action) {
			fail(c, http.StatusForbidden, msgForbidden)
			return
		}
		c.Next()
	}
}

func mustClaims(c *gin.Context) *jwt.Claims {
	return c.MustGet(claimsKey).(*jwt.Claims)
}
