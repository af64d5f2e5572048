package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/homeswipe/homeswipe/internal/config"
	dbRedis "github.com/homeswipe/homeswipe/internal/db/redis"
	logpkg "github.com/homeswipe/homeswipe/internal/logger"
	"github.com/homeswipe/homeswipe/internal/metrics"
	listingrepo "github.com/homeswipe/homeswipe/internal/repository/listing"
	swiperepo "github.com/homeswipe/homeswipe/internal/repository/swipe"
	chiTransport "github.com/homeswipe/homeswipe/internal/transport/chi"
	cataloguc "github.com/homeswipe/homeswipe/internal/usecase/catalog"
	healthuc "github.com/homeswipe/homeswipe/internal/usecase/health"
	recommenderuc "github.com/homeswipe/homeswipe/internal/usecase/recommender"
	swipesuc "github.com/homeswipe/homeswipe/internal/usecase/swipes"
	"github.com/homeswipe/homeswipe/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting homeswipe API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register recommender metrics explicitly (no init())
	metrics.RegisterRecommenderMetrics()

	// Repositories share one key prefix so indexes and documents stay aligned.
	listingRepo := listingrepo.New(store, cfg.Storage.KeyPrefix)
	swipeRepo := swiperepo.New(store, cfg.Storage.KeyPrefix)

	if err := listingRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create listing index", zap.Error(err))
	}
	if err := swipeRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create swipe index", zap.Error(err))
	}
	logger.Info("Search indexes ready",
		zap.String("listing_index", listingRepo.IndexName()),
		zap.String("swipe_index", swipeRepo.IndexName()),
	)

	// Create use case services
	catalogSvc := cataloguc.New(listingRepo)
	swipesSvc := swipesuc.New(swipeRepo, listingRepo)
	trainer := recommenderuc.NewTrainer(listingRepo, swipeRepo, cfg.Recommender.MinSwipes)
	recSvc := recommenderuc.New(listingRepo, swipeRepo, trainer, cfg.Recommender)

	healthSvc := healthuc.New(store, &indexChecker{
		store: store,
		names: []string{listingRepo.IndexName(), swipeRepo.IndexName()},
	})

	// Create chi server
	server := chiTransport.NewServer(catalogSvc, swipesSvc, recSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// indexProber is the slice of the store the readiness check needs.
type indexProber interface {
	IndexExists(ctx context.Context, name string) (bool, error)
}

// indexChecker verifies the search indexes backing the API still exist.
type indexChecker struct {
	store indexProber
	names []string
}

func (c *indexChecker) IndexesReady(ctx context.Context) error {
	for _, name := range c.names {
		ok, err := c.store.IndexExists(ctx, name)
		if err != nil {
			return fmt.Errorf("probe index %s: %w", name, err)
		}
		if !ok {
			return fmt.Errorf("index %s is missing", name)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
