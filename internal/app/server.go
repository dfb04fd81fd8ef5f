// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"memoriza-service/internal/backend"
	"memoriza-service/internal/config"
	"memoriza-service/internal/db"
	authHandler "memoriza-service/internal/handlers/auth"
	carouselHandler "memoriza-service/internal/handlers/carousel"
	wsHandler "memoriza-service/internal/handlers/websocket"
	"memoriza-service/internal/metrics"
	"memoriza-service/internal/middleware"
	"memoriza-service/internal/pkg/jwt"
	"memoriza-service/internal/pkg/session"
	authUsecase "memoriza-service/internal/service/auth"
	carouselUsecase "memoriza-service/internal/service/carousel"
	"memoriza-service/internal/websocket"
	wsHandlers "memoriza-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg         *config.AppConfig
	engine      *gin.Engine
	httpServer  *http.Server
	logger      *zap.Logger
	authService *authUsecase.AuthService
	sessions    *session.Manager
	redis       *redis.Client

	cancel context.CancelFunc
	done   chan struct{}
}

// NewServer wires every component and starts the background workers (hub
// and session sweeper). Call Shutdown to stop them.
func NewServer(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger, done: make(chan struct{})}

	// ----- API token verification (optional) -----
	var verifier authUsecase.TokenVerifier
	if path := cfg.Backend.TokenPublicKeyPath; path != "" {
		v, err := jwt.LoadVerifier(path, cfg.Backend.TokenIssuer, cfg.Backend.TokenAudience)
		if err != nil {
			return nil, fmt.Errorf("api token key: %w", err)
		}
		verifier = v
	} else {
		logger.Warn("API_JWT_PUBLIC_KEY_PATH not set, browser-supplied tokens are confirmed by the backend only")
	}

	// ----- Redis (optional) -----
	var (
		store   session.Persister
		limiter authHandler.LoginLimiter
	)
	if cfg.Redis.Addr != "" {
		client, err := db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.redis = client
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		limiter = session.NewRateLimiter(client, cfg.Session.LoginMaxAttempts, cfg.Session.LoginWindow)
		if cfg.Session.PersistenceEnabled {
			store = session.NewRedisStore(client, cfg.Session.TTL)
		}
	} else if cfg.Session.PersistenceEnabled {
		logger.Warn("session persistence requested without REDIS_ADDR, keeping sessions in memory")
	}

	// ----- Metrics -----
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(registry)

	// ----- Sessions -----
	sessionManager := session.NewManager(store, logger)
	s.sessions = sessionManager

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(logger)
	hub.RegisterHandler(wsHandlers.NewCapabilitiesHandler())

	// ----- Services (Usecases) -----
	backendClient := backend.NewClient(cfg.Backend, recorder, logger)
	authService := authUsecase.NewAuthService(
		backendClient,
		sessionManager,
		hub,
		verifier,
		recorder,
		cfg.Backend.PermissionFetchTimeout,
		logger,
	)
	s.authService = authService
	carouselService := carouselUsecase.NewCarouselService(backendClient, hub, recorder, logger)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:       authHandler.NewAuthHandler(authService, limiter, cfg.FrontendURL, logger),
		CarouselHandler:   carouselHandler.NewCarouselHandler(carouselService, logger),
		WSHandler:         wsHandler.NewWebSocketHandler(hub, cfg.CORSOrigins, logger),
		AuthMiddleware:    middleware.NewAuthMiddleware(authService),
		SessionMiddleware: middleware.NewSessionMiddleware(sessionManager, cfg.Cookie),
		Metrics:           metrics.Handler(registry),
	}

	s.engine = gin.New()
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(cfg.CORSOrigins),
	)
	SetupRouter(s.engine, handlers)

	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// ----- Background workers -----
	workerCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go hub.Run(workerCtx)
	go func() {
		defer close(s.done)
		sessionManager.RunSweeper(workerCtx, cfg.Session.SweepInterval, cfg.Session.IdleTimeout, recorder.SetActiveSessions)
	}()

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight permission fetches
// and stops the background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	fetches := make(chan struct{})
	go func() {
		s.authService.Wait()
		close(fetches)
	}()
	select {
	case <-fetches:
	case <-ctx.Done():
		s.logger.Warn("permission fetches still running at shutdown")
	}

	s.cancel()
	<-s.done

	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil {
			s.logger.Warn("failed to close Redis client", zap.Error(cerr))
		}
	}
	return err
}
