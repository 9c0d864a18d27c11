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

	"github.com/hiringlab/assessrec/internal/catalog"
	"github.com/hiringlab/assessrec/internal/config"
	dbRedis "github.com/hiringlab/assessrec/internal/db/redis"
	"github.com/hiringlab/assessrec/internal/domain"
	logpkg "github.com/hiringlab/assessrec/internal/logger"
	"github.com/hiringlab/assessrec/internal/metrics"
	"github.com/hiringlab/assessrec/internal/repository/embcache"
	indexrepo "github.com/hiringlab/assessrec/internal/repository/index"
	chiTransport "github.com/hiringlab/assessrec/internal/transport/chi"
	geminiGen "github.com/hiringlab/assessrec/internal/transport/gemini"
	openaiEmb "github.com/hiringlab/assessrec/internal/transport/openai"
	composeuc "github.com/hiringlab/assessrec/internal/usecase/compose"
	healthuc "github.com/hiringlab/assessrec/internal/usecase/health"
	ingestuc "github.com/hiringlab/assessrec/internal/usecase/ingest"
	retrieveuc "github.com/hiringlab/assessrec/internal/usecase/retrieve"
	"github.com/hiringlab/assessrec/internal/version"
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

	logger.Info("Starting assessrec API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
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

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	// Build embedder chain — composition root
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		TimeoutSec: cfg.Embedding.TimeoutSec,
		Logger:     logger,
	})

	var embedder interface {
		domain.Embedder
		domain.BatchEmbedder
	} = base
	if cfg.Embedding.Cache {
		embedder = embcache.New(
			base, store, cfg.Embedding.Model,
			time.Duration(cfg.Embedding.CacheTTL)*time.Second,
			metrics.EmbeddingCacheTotal, logger,
		)
	}
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache),
	)

	generator, err := geminiGen.NewGenerator(ctx, &geminiGen.Config{
		APIKey:     cfg.Generation.APIKey,
		Model:      cfg.Generation.Model,
		TimeoutSec: cfg.Generation.TimeoutSec,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("Failed to create generator", zap.Error(err))
	}

	// Repository and use case services
	repo := indexrepo.New(store, cfg.Embedding.Dimensions, logger)

	ingestSvc := ingestuc.New(embedder, repo, cfg.Retrieval.TruncateChars, cfg.Retrieval.BatchSize, logger)
	retrieveSvc := retrieveuc.New(embedder, repo, logger)
	composeSvc := composeuc.New(generator, cfg.Retrieval.MaxPromptCandidates, logger)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder), repo)

	if cfg.Catalog.AutoIngest {
		autoIngest(ctx, cfg.Catalog.Path, ingestSvc, logger)
	}

	// Create chi server
	server := chiTransport.NewServer(ingestSvc, retrieveSvc, composeSvc, healthSvc, cfg.Retrieval.DefaultK, logger)

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

// autoIngest loads the bundled catalog and indexes it on startup. A failure is
// logged but does not prevent the server from starting: push_docs can repair
// the index later.
func autoIngest(ctx context.Context, path string, svc *ingestuc.Service, logger *zap.Logger) {
	records, err := catalog.Load(path, logger)
	if err != nil {
		logger.Error("Catalog auto-ingest: load failed", zap.String("path", path), zap.Error(err))
		return
	}

	report, err := svc.Ingest(ctx, records)
	if err != nil {
		logger.Error("Catalog auto-ingest failed", zap.Error(err))
		return
	}

	logger.Info("Catalog auto-ingest complete",
		zap.Int("upserted", report.Upserted),
		zap.Int("failed", len(report.FailedIDs)),
	)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
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
