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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entrysearch/internal/config"
	"github.com/kailas-cloud/entrysearch/internal/db"
	dbRedis "github.com/kailas-cloud/entrysearch/internal/db/redis"
	logpkg "github.com/kailas-cloud/entrysearch/internal/logger"
	"github.com/kailas-cloud/entrysearch/internal/metrics"
	"github.com/kailas-cloud/entrysearch/internal/repository/entrycache"
	chiTransport "github.com/kailas-cloud/entrysearch/internal/transport/chi"
	"github.com/kailas-cloud/entrysearch/internal/transport/contentsource"
	"github.com/kailas-cloud/entrysearch/internal/usecase/dispatch"
	healthuc "github.com/kailas-cloud/entrysearch/internal/usecase/health"
	registryuc "github.com/kailas-cloud/entrysearch/internal/usecase/registry"
	"github.com/kailas-cloud/entrysearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting entrysearch server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("content_source", cfg.ContentSource.Endpoint),
		zap.Duration("wait", cfg.Search.Wait()),
		zap.Int("page_size", cfg.Search.PageSize.Int()),
		zap.Bool("cache", cfg.Cache.Enabled()),
	)

	searchMetrics, err := metrics.NewSearch(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to register search metrics", zap.Error(err))
	}
	httpMetrics, err := metrics.NewHTTP(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to register HTTP metrics", zap.Error(err))
	}

	source, err := contentsource.New(&contentsource.Config{
		Endpoint:   cfg.ContentSource.Endpoint,
		Headers:    cfg.ContentSource.Headers,
		HTTPClient: &http.Client{Timeout: time.Duration(cfg.ContentSource.TimeoutSec) * time.Second},
		Metrics:    searchMetrics,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("Failed to create content source client", zap.Error(err))
	}

	// Optional response cache
	var fetcher dispatch.Fetcher = source
	var cachePinger healthuc.CachePinger
	if cfg.Cache.Enabled() {
		store, err := openCache(cfg.Cache)
		if err != nil {
			logger.Fatal("Failed to open response cache", zap.Error(err))
		}
		defer store.Close()

		fetcher = entrycache.New(source, store, cfg.Cache.TTL(), searchMetrics, logger)
		cachePinger = store
		logger.Info("Connected to response cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Sessions outlive the requests that create them.
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	sessions := registryuc.New(rootCtx, fetcher, dispatch.Config{
		Wait:    cfg.Search.Wait(),
		Metrics: searchMetrics,
		Logger:  logger,
	}, registryuc.Defaults{
		Blocks:   cfg.Search.Filters,
		Locale:   cfg.Search.Locale,
		PageSize: cfg.Search.PageSize.Int(),
	}, searchMetrics, logger)

	server := chiTransport.NewServer(sessions, healthuc.New(cachePinger, sessions), promhttp.Handler(), logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpMetrics.Middleware())
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
	sessions.CloseAll()

	logger.Info("Server stopped gracefully")
}

// openCache connects to the response cache and waits until it answers.
func openCache(cfg config.CacheConfig) (db.Store, error) {
	timeout := time.Duration(cfg.ReadinessTimeout) * time.Second
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:       cfg.Addrs,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		ClientName:  "entrysearch-server",
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache store: %w", err)
	}
	if err := store.WaitForReady(context.Background(), timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("wait for cache: %w", err)
	}
	return store, nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if session := rctx.URLParam("session"); session != "" {
					fields = append(fields, zap.String("session_id", session))
				}
			}
			reqLogger.Info("http_request", fields...)
		})
	}
}
