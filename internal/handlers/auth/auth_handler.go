// internal/handlers/auth/auth_handler.go
package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"memoriza-service/internal/domain/auth"
	"memoriza-service/internal/middleware"
	xerrors "memoriza-service/internal/pkg/errors"
	"memoriza-service/internal/pkg/response"
	authUsecase "memoriza-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginLimiter throttles credential logins per client IP and identifier.
type LoginLimiter interface {
	CheckLoginAttempt(ctx context.Context, ip, identifier string) (bool, int64, error)
	ResetLoginAttempts(ctx context.Context, ip, identifier string) error
}

type AuthHandler struct {
	authService *authUsecase.AuthService
	limiter     LoginLimiter // nil disables throttling
	frontendURL string
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, limiter LoginLimiter, frontendURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		limiter:     limiter,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// ========== Login ==========

// Login exchanges credentials for a session
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "identifier and password are required", nil)
		return
	}

	ctx := c.Request.Context()
	ip := c.ClientIP()

	if h.limiter != nil {
		allowed, remaining, err := h.limiter.CheckLoginAttempt(ctx, ip, req.Identifier)
		if err != nil {
			h.logger.Warn("login rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			response.TooManyRequests(c, "Too many login attempts. Try again later.", gin.H{"remaining_attempts": remaining})
			return
		}
	}

	sess := middleware.MustGetSession(c)
	if err := h.authService.Login(ctx, sess, req.Identifier, req.Password); err != nil {
		h.logger.Info("login failed",
			zap.String("session_id", sess.ID()),
			zap.String("ip", ip),
			zap.Error(err),
		)
		response.FromError(c, err, authUsecase.MsgLoginFailed)
		return
	}

	if h.limiter != nil {
		if err := h.limiter.ResetLoginAttempts(ctx, ip, req.Identifier); err != nil {
			h.logger.Warn("failed to reset login attempts", zap.Error(err))
		}
	}

	response.Success(c, http.StatusOK, "login successful", h.authService.View(sess))
}

// Register forwards the registration form and logs the new account in
func (h *AuthHandler) Register(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil || len(payload) == 0 {
		response.Error(c, http.StatusBadRequest, "invalid registration form", nil)
		return
	}

	sess := middleware.MustGetSession(c)
	if err := h.authService.Register(c.Request.Context(), sess, payload); err != nil {
		h.logger.Info("registration failed", zap.String("session_id", sess.ID()), zap.Error(err))
		response.FromError(c, err, authUsecase.MsgRegisterFailed)
		return
	}

	response.Success(c, http.StatusCreated, "registration successful", h.authService.View(sess))
}

// LoginWithToken applies a token issued by an external identity provider
func (h *AuthHandler) LoginWithToken(c *gin.Context) {
	var req auth.TokenLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "token is required", nil)
		return
	}

	sess := middleware.MustGetSession(c)
	if err := h.authService.LoginWithToken(c.Request.Context(), sess, req.Token); err != nil {
		response.FromError(c, err, authUsecase.MsgInvalidToken)
		return
	}

	response.Success(c, http.StatusOK, "login successful", h.authService.View(sess))
}

// Callback receives the redirect of an external identity provider and sends
// the browser back to the storefront.
func (h *AuthHandler) Callback(c *gin.Context) {
	sess := middleware.MustGetSession(c)

	token := c.Query("token")
	if token == "" {
		c.Redirect(http.StatusFound, h.frontendURL+"/login?error="+url.QueryEscape("missing_token"))
		return
	}

	if err := h.authService.LoginWithToken(c.Request.Context(), sess, token); err != nil {
		h.logger.Warn("external login failed", zap.String("session_id", sess.ID()), zap.Error(err))
		c.Redirect(http.StatusFound, h.frontendURL+"/login?error="+url.QueryEscape("invalid_token"))
		return
	}

	target := h.frontendURL + "/"
	if h.authService.IsAdmin(sess) {
		target = h.frontendURL + "/admin"
	}
	c.Redirect(http.StatusFound, target)
}

// Logout clears the session
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := middleware.MustGetSession(c)
	h.authService.Logout(c.Request.Context(), sess)
	response.Success(c, http.StatusOK, "logged out", h.authService.View(sess))
}

// ========== Session state ==========

// Me returns the session as the frontend sees it
func (h *AuthHandler) Me(c *gin.Context) {
	sess := middleware.MustGetSession(c)
	response.Success(c, http.StatusOK, "session retrieved", h.authService.View(sess))
}

// UpdateProfile merges profile fields into the session identity
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var partial map[string]any
	if err := c.ShouldBindJSON(&partial); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid profile", nil)
		return
	}

	sess := middleware.MustGetSession(c)
	if !h.authService.UpdateUserFromProfile(c.Request.Context(), sess, partial) {
		response.FromError(c, xerrors.Public("not logged in", xerrors.ErrUnauthorized), "")
		return
	}

	response.Success(c, http.StatusOK, "profile updated", h.authService.View(sess))
}

// Capabilities returns the capability set of one admin module
func (h *AuthHandler) Capabilities(c *gin.Context) {
	module := strings.TrimSpace(c.Param("module"))
	if module == "" {
		response.Error(c, http.StatusBadRequest, "module is required", nil)
		return
	}

	sess := middleware.MustGetSession(c)
	response.Success(c, http.StatusOK, "capabilities retrieved", h.authService.Capabilities(sess, module))
}
