// internal/service/auth/auth.go
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"memoriza-service/internal/backend"
	"memoriza-service/internal/domain/auth"
	wstypes "memoriza-service/internal/domain/websocket"
	"memoriza-service/internal/metrics"
	xerrors "memoriza-service/internal/pkg/errors"
	"memoriza-service/internal/pkg/identity"
	"memoriza-service/internal/pkg/jwt"
	"memoriza-service/internal/pkg/permission"
	"memoriza-service/internal/pkg/session"

	"go.uber.org/zap"
)

// User-facing messages.
const (
	MsgLoginFailed    = "Invalid credentials."
	MsgRegisterFailed = "Could not complete registration."
	MsgConnectivity   = "Could not reach the server. Check your connection and try again."
	MsgInvalidToken   = "The authentication token is invalid."
)

// Login methods used as metric labels.
const (
	methodPassword = "password"
	methodRegister = "register"
	methodToken    = "token"
)

// protectedClaims cannot be changed through a profile update: token metadata,
// who the account is, and everything that grants access.
var protectedClaims = map[string]bool{
	"sub": true, "exp": true, "iat": true, "nbf": true,
	"iss": true, "aud": true, "jti": true,
	"id": true, "nameid": true, "email": true, "userType": true,
}

func init() {
	for _, group := range [][]string{
		auth.AdminClaims, auth.GroupClaims, auth.EmployeeGroupClaims, auth.ProviderClaims,
	} {
		for _, key := range group {
			protectedClaims[key] = true
		}
	}
}

// Backend is the part of the Memoriza API the session flows use.
type Backend interface {
	Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error)
	Register(ctx context.Context, payload map[string]any) (*auth.AuthResponse, error)
	GetGroup(ctx context.Context, token, groupID string) (*auth.PermissionGroup, error)
}

// TokenVerifier checks the signature of tokens issued by the Memoriza API.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// EventPublisher pushes session events to connected clients.
type EventPublisher interface {
	PublishSession(sessionID string, msg *wstypes.WSMessage)
}

type AuthService struct {
	backend      Backend
	sessions     *session.Manager
	events       EventPublisher
	verifier     TokenVerifier
	metrics      metrics.Recorder
	fetchTimeout time.Duration
	logger       *zap.Logger

	wg sync.WaitGroup
}

func NewAuthService(
	backend Backend,
	sessions *session.Manager,
	events EventPublisher,
	verifier TokenVerifier,
	recorder metrics.Recorder,
	fetchTimeout time.Duration,
	logger *zap.Logger,
) *AuthService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &AuthService{
		backend:      backend,
		sessions:     sessions,
		events:       events,
		verifier:     verifier,
		metrics:      recorder,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// ========== Login flows ==========

// Login exchanges credentials for a token and applies it to sess. Permission
// enrichment continues in the background.
func (s *AuthService) Login(ctx context.Context, sess *session.Session, identifier, password string) error {
	resp, err := s.backend.Login(ctx, auth.LoginRequest{Identifier: identifier, Password: password})
	if err != nil {
		return s.backendFailure(methodPassword, err, MsgLoginFailed, xerrors.ErrUnauthorized)
	}
	return s.applyResponse(ctx, sess, methodPassword, resp, MsgLoginFailed)
}

// Register forwards the full registration payload and logs the new account in.
func (s *AuthService) Register(ctx context.Context, sess *session.Session, payload map[string]any) error {
	resp, err := s.backend.Register(ctx, payload)
	if err != nil {
		return s.backendFailure(methodRegister, err, MsgRegisterFailed, xerrors.ErrInvalidInput)
	}
	return s.applyResponse(ctx, sess, methodRegister, resp, MsgRegisterFailed)
}

// LoginWithToken applies a token obtained from an external identity provider.
// The token arrives through the browser, so its claims stay display-only until
// its signature verifies or the backend accepts it on the permission fetch.
func (s *AuthService) LoginWithToken(ctx context.Context, sess *session.Session, token string) error {
	if err := s.applyToken(ctx, sess, strings.TrimSpace(token), false); err != nil {
		s.metrics.RecordLogin(methodToken, metrics.OutcomeRejected)
		return err
	}
	s.metrics.RecordLogin(methodToken, metrics.OutcomeSuccess)
	return nil
}

// Logout drops token and identity. Nothing is sent to the backend.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) {
	sess.Clear()
	s.sessions.Persist(ctx, sess)
	s.publish(sess.ID(), wstypes.EventTypeLoggedOut, wstypes.SessionEventData{
		SessionID: sess.ID(),
		Reason:    "logout",
	})
	s.logger.Info("session logged out", zap.String("session_id", sess.ID()))
}

func (s *AuthService) applyResponse(ctx context.Context, sess *session.Session, method string, resp *auth.AuthResponse, fallback string) error {
	if resp == nil || strings.TrimSpace(resp.Token) == "" {
		s.metrics.RecordLogin(method, metrics.OutcomeRejected)
		msg := fallback
		if resp != nil && strings.TrimSpace(resp.Message) != "" {
			msg = resp.Message
		}
		return xerrors.Public(msg, xerrors.ErrUnauthorized)
	}

	if err := s.applyToken(ctx, sess, resp.Token, true); err != nil {
		s.metrics.RecordLogin(method, metrics.OutcomeRejected)
		return err
	}
	s.metrics.RecordLogin(method, metrics.OutcomeSuccess)
	return nil
}

func (s *AuthService) backendFailure(method string, err error, fallback string, cause error) error {
	if backend.IsTransport(err) {
		s.metrics.RecordLogin(method, metrics.OutcomeError)
		s.logger.Error("backend unreachable", zap.String("method", method), zap.Error(err))
		return xerrors.Public(MsgConnectivity, fmt.Errorf("%w: %v", xerrors.ErrUnavailable, err))
	}

	if se, ok := backend.AsStatus(err); ok {
		s.metrics.RecordLogin(method, metrics.OutcomeRejected)
		s.logger.Info("backend rejected request",
			zap.String("method", method),
			zap.Int("status", se.StatusCode),
			zap.String("body", se.Body),
		)
		msg := fallback
		if se.Message != "" {
			msg = se.Message
		}
		return xerrors.Public(msg, fmt.Errorf("%w: %v", cause, err))
	}

	s.metrics.RecordLogin(method, metrics.OutcomeError)
	s.logger.Error("login request failed", zap.String("method", method), zap.Error(err))
	return xerrors.Public(fallback, err)
}

// applyToken decodes and normalizes token and starts a new generation. An
// undecodable token leaves the session logged out. fromBackend marks a token
// taken straight from a backend response.
func (s *AuthService) applyToken(ctx context.Context, sess *session.Session, token string, fromBackend bool) error {
	decoded := jwt.Decode(token)
	if decoded == nil {
		sess.Clear()
		s.sessions.Persist(ctx, sess)
		s.logger.Warn("discarding undecodable token", zap.String("session_id", sess.ID()))
		return xerrors.Public(MsgInvalidToken, xerrors.ErrInvalidToken)
	}

	user := identity.Normalize(decoded)
	gen := sess.Apply(token, user)
	confirmed := fromBackend || s.verifyToken(sess, token)
	if confirmed {
		sess.Confirm(gen)
	}
	s.sessions.Persist(ctx, sess)

	s.logger.Info("session authenticated",
		zap.String("session_id", sess.ID()),
		zap.String("auth_provider", user.AuthProvider()),
		zap.Bool("is_admin", user.IsAdmin()),
		zap.Bool("confirmed", confirmed),
	)
	s.publish(sess.ID(), wstypes.EventTypeAuthenticated, wstypes.SessionEventData{SessionID: sess.ID()})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic while loading group permissions",
					zap.String("session_id", sess.ID()),
					zap.Any("panic", r),
				)
			}
		}()

		fetchCtx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
		defer cancel()
		s.loadGroupPermissions(fetchCtx, sess, gen, token, user)
	}()
	return nil
}

func (s *AuthService) verifyToken(sess *session.Session, token string) bool {
	if s.verifier == nil {
		return false
	}
	if _, err := s.verifier.Verify(token); err != nil {
		s.logger.Warn("token signature not accepted", zap.String("session_id", sess.ID()), zap.Error(err))
		return false
	}
	return true
}

// loadGroupPermissions fetches the permission group of user and attaches it
// to sess, unless the session moved on to another login or logged out.
func (s *AuthService) loadGroupPermissions(ctx context.Context, sess *session.Session, gen uint64, token string, user *auth.Identity) {
	groupID, ok := identity.ResolveGroupID(user)
	if !ok {
		s.metrics.RecordPermissionFetch(metrics.OutcomeSkipped)
		return
	}

	log := s.logger.With(zap.String("session_id", sess.ID()), zap.String("group_id", groupID))

	group, err := s.backend.GetGroup(ctx, token, groupID)
	if err != nil {
		if se, ok := backend.AsStatus(err); ok && se.IsAuthFailure() {
			s.metrics.RecordPermissionFetch(metrics.OutcomeForbidden)
			log.Warn("permission group fetch not authorized", zap.Int("status", se.StatusCode))
			return
		}
		s.metrics.RecordPermissionFetch(metrics.OutcomeError)
		log.Warn("failed to fetch permission group", zap.Error(err))
		return
	}

	modules := group.ModuleNames()
	if !sess.MergePermissions(gen, group.Permissions, modules) {
		s.metrics.RecordPermissionFetch(metrics.OutcomeStale)
		log.Debug("discarding permissions for a replaced session state")
		return
	}

	// the backend accepted the bearer token
	sess.Confirm(gen)
	s.metrics.RecordPermissionFetch(metrics.OutcomeSuccess)
	s.sessions.Persist(ctx, sess)
	log.Info("group permissions loaded", zap.Strings("modules", modules))
	s.publish(sess.ID(), wstypes.EventTypePermissionsLoaded, wstypes.PermissionsLoadedData{
		GroupID: groupID,
		Modules: modules,
	})
}

// ========== Profile ==========

// UpdateUserFromProfile merges partial into the current identity. Claims that
// grant access cannot be changed this way. It reports false when nobody is
// logged in.
func (s *AuthService) UpdateUserFromProfile(ctx context.Context, sess *session.Session, partial map[string]any) bool {
	updated := sess.UpdateUser(func(user *auth.Identity) {
		if user.Claims == nil {
			user.Claims = make(map[string]any)
		}
		for k, v := range partial {
			if protectedClaims[k] {
				continue
			}
			user.Claims[k] = v
		}

		_, first := partial["firstName"]
		_, last := partial["lastName"]
		_, full := partial["fullName"]
		if (first || last) && !full {
			name := identity.ComposeFullName(
				auth.FirstString(user.Claims, auth.FirstNameClaims...),
				auth.FirstString(user.Claims, auth.LastNameClaims...),
			)
			if name != "" {
				user.Claims["fullName"] = name
			}
		}
	})
	if !updated {
		return false
	}

	s.sessions.Persist(ctx, sess)
	s.publish(sess.ID(), wstypes.EventTypeProfileUpdated, wstypes.SessionEventData{SessionID: sess.ID()})
	return true
}

// ========== Queries ==========

// IsAdmin reports owner-admin status: admin claim and no employee group.
func (s *AuthService) IsAdmin(sess *session.Session) bool {
	return sess.IsAdmin()
}

// IsConfirmedAdmin is IsAdmin backed by a token the backend vouched for. It
// guards what this service serves on its own.
func (s *AuthService) IsConfirmedAdmin(sess *session.Session) bool {
	return sess.Confirmed() && sess.IsAdmin()
}

// Capabilities evaluates module for the current identity of sess.
func (s *AuthService) Capabilities(sess *session.Session, module string) permission.CapabilitySet {
	state := sess.Snapshot()
	return permission.Evaluate(module, state.User, state.User.IsAdmin())
}

// View reports the session state the way the frontend consumes it.
func (s *AuthService) View(sess *session.Session) auth.SessionView {
	state := sess.Snapshot()
	return auth.SessionView{
		IsLoading:       state.IsLoading,
		IsAuthenticated: state.IsAuthenticated(),
		IsAdmin:         state.User.IsAdmin(),
		User:            state.User.View(),
	}
}

// Wait blocks until background permission fetches have finished.
func (s *AuthService) Wait() {
	s.wg.Wait()
}

func (s *AuthService) publish(sessionID string, eventType wstypes.EventType, data interface{}) {
	if s.events == nil {
		return
	}
	s.events.PublishSession(sessionID, wstypes.NewMessage(eventType, data))
}
