package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"memoriza-service/internal/config"
	"memoriza-service/internal/db"
	"memoriza-service/internal/devapi"
	"memoriza-service/internal/pkg/jwt"
	"memoriza-service/internal/pkg/logger"
	"memoriza-service/internal/repository/postgres"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[DEVAPI] No .env file found, relying on system env vars")
	}

	cfg, err := config.LoadDevAPI()
	if err != nil {
		log.Fatalf("[DEVAPI] %v", err)
	}

	zl, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("[DEVAPI] %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ----- JWT -----
	var tokens *jwt.Manager
	if cfg.PrivPath != "" && cfg.PubPath != "" {
		tokens, err = jwt.LoadAndBuild(cfg.JWT())
	} else {
		zl.Warn("JWT key paths not set, signing with an ephemeral key")
		tokens, err = jwt.Ephemeral(cfg.JWT())
	}
	if err != nil {
		zl.Fatal("failed to build JWT manager", zap.Error(err))
	}

	// ----- Store -----
	var store devapi.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			zl.Fatal("failed to connect to PostgreSQL", zap.Error(err))
		}
		defer pool.Close()

		if err := postgres.NewDB(pool).Migrate(ctx); err != nil {
			zl.Fatal("failed to migrate", zap.Error(err))
		}
		store = postgres.NewStore(pool)
		zl.Info("using PostgreSQL store")
	} else {
		store = devapi.NewMemoryStore()
		zl.Info("using in-memory store")
	}

	if err := devapi.Seed(ctx, store, bcrypt.DefaultCost); err != nil {
		zl.Fatal("failed to seed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           devapi.NewServer(store, tokens, bcrypt.DefaultCost, zl).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("dev API listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("dev API failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down dev API")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("dev API shutdown failed", zap.Error(err))
	}
}
