package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kailas-cloud/tourguide/internal/cache"
	"github.com/kailas-cloud/tourguide/internal/config"
	dbMysql "github.com/kailas-cloud/tourguide/internal/db/mysql"
	dbRedis "github.com/kailas-cloud/tourguide/internal/db/redis"
	"github.com/kailas-cloud/tourguide/internal/domain"
	logpkg "github.com/kailas-cloud/tourguide/internal/logger"
	"github.com/kailas-cloud/tourguide/internal/metrics"
	"github.com/kailas-cloud/tourguide/internal/prompt"
	catalogrepo "github.com/kailas-cloud/tourguide/internal/repository/catalog"
	"github.com/kailas-cloud/tourguide/internal/repository/embcache"
	reviewrepo "github.com/kailas-cloud/tourguide/internal/repository/review"
	chiTransport "github.com/kailas-cloud/tourguide/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/tourguide/internal/transport/openai"
	"github.com/kailas-cloud/tourguide/internal/usecase/assemble"
	cataloguc "github.com/kailas-cloud/tourguide/internal/usecase/catalog"
	chatuc "github.com/kailas-cloud/tourguide/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/tourguide/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/tourguide/internal/usecase/health"
	intentuc "github.com/kailas-cloud/tourguide/internal/usecase/intent"
	reviewuc "github.com/kailas-cloud/tourguide/internal/usecase/review"
	searchuc "github.com/kailas-cloud/tourguide/internal/usecase/search"
	sessionuc "github.com/kailas-cloud/tourguide/internal/usecase/session"
	"github.com/kailas-cloud/tourguide/internal/version"
)

func main() {
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

	logger.Info("Starting tourguide API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Database.Addrs),
		zap.Bool("reviews_enabled", cfg.Reviews.Enabled()),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:            cfg.Database.Addrs,
		Username:         cfg.Database.Username,
		Password:         cfg.Database.Password,
		ClientName:       "tourguide-api",
		ConnWriteTimeout: 5 * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Explicit registration, no init().
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	metrics.RegisterStateMetrics()

	prompts, err := prompt.Load(cfg.Generation.PromptVersion)
	if err != nil {
		logger.Fatal("Failed to load prompts", zap.Error(err))
	}

	catalogCfg, err := catalogrepo.FromSettings(cfg.Catalog)
	if err != nil {
		logger.Fatal("Invalid catalog settings", zap.Error(err))
	}
	index := catalogrepo.New(store, catalogCfg, logger)
	embedder := buildEmbedder(cfg.Embedding, store, logger)
	generator := openaiTransport.NewGenerator(openaiTransport.ClientConfig{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
	}, logger)

	sessions := sessionuc.New(sessionuc.Config{
		MaxHistory:  cfg.Session.MaxHistory,
		IdleTimeout: time.Duration(cfg.Session.IdleTimeoutMin) * time.Minute,
	}, logger)

	answerCache := cache.New[chatuc.CachedAnswer](cache.Options{
		Name:       "query_cache",
		TTL:        time.Duration(cfg.Cache.AnswerTTLMin) * time.Minute,
		MaxEntries: cfg.Cache.AnswerMaxEntries,
	})
	reviewCache := cache.New[reviewuc.Summary](cache.Options{
		Name:       "review_cache",
		TTL:        time.Duration(cfg.Cache.ReviewTTLHours) * time.Hour,
		MaxEntries: cfg.Cache.ReviewMaxEntries,
	})

	searchSvc := searchuc.New(index, embedder, cfg.Catalog.BackendURL, logger)
	catalogSvc := cataloguc.New(index, time.Duration(cfg.Catalog.StatsTTLSec)*time.Second, logger)
	router := intentuc.New(generator, prompts, cfg.Generation.ClassifyModel, logger)
	assembler := assemble.New(searchSvc, catalogSvc, assemble.Config{
		BackendURL:  cfg.Catalog.BackendURL,
		FrontendURL: cfg.Catalog.FrontendURL,
	}, logger)
	chatSvc := chatuc.New(router, assembler, sessions, answerCache, generator, prompts, chatuc.Config{
		Model:           cfg.Generation.Model,
		Temperature:     cfg.Generation.Temperature,
		MaxTokens:       cfg.Generation.MaxTokens,
		HistoryMessages: cfg.Session.ContextMessages,
		ReplayDelay:     time.Duration(cfg.Generation.ReplayDelayMS) * time.Millisecond,
		StreamBuffer:    cfg.Generation.StreamBuffer,
		FrontendURL:     cfg.Catalog.FrontendURL,
	}, logger)

	// Reviews are optional: without a DSN /SumaryReview answers 503.
	var (
		reviewSvc    chiTransport.Reviews
		reviewPinger healthuc.DBPinger
	)
	if cfg.Reviews.Enabled() {
		gdb, err := dbMysql.Open(dbMysql.Config{
			DSN:             cfg.Reviews.DSN,
			MaxOpenConns:    cfg.Reviews.MaxOpenConns,
			MaxIdleConns:    cfg.Reviews.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Reviews.ConnMaxLifetime) * time.Second,
		})
		if err != nil {
			logger.Fatal("Failed to open reviews database", zap.Error(err))
		}
		defer closeReviews(gdb, logger)

		repo := reviewrepo.New(gdb, logger)
		reviewPinger = repo
		reviewSvc = reviewuc.New(repo, generator, prompts, reviewCache, reviewuc.Config{
			Model:       cfg.Generation.ReviewModel,
			Temperature: cfg.Generation.Temperature,
		}, logger)
		logger.Info("Reviews database configured")
	}

	healthSvc := healthuc.New(store, index, embedder, reviewPinger)

	if created, err := index.EnsureIndex(ctx); err != nil {
		logger.Warn("Catalog index check failed", zap.Error(err))
	} else if created {
		logger.Info("Catalog index created; run catalog-loader to populate it",
			zap.String("index", cfg.Catalog.IndexName))
	}

	server := chiTransport.NewServer(chiTransport.Deps{
		Chat:        chatSvc,
		Sessions:    sessions,
		Search:      searchSvc,
		Catalog:     catalogSvc,
		Reviews:     reviewSvc,
		Health:      healthSvc,
		ReviewCache: reviewCache,
		AnswerCache: answerCache,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(corsMiddleware())
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ChiServerOptions{
		BaseRouter:       r,
		AdminMiddlewares: []chiTransport.MiddlewareFunc{chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys)},
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
				Code:    chiTransport.ErrorCodeBadRequest,
				Message: "invalid request",
			})
		},
	})

	go sweepSessions(ctx, sessions, time.Duration(cfg.Session.SweepSec)*time.Second, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(c config.EmbeddingConfig, store *dbRedis.Store, logger *zap.Logger) *embeddinguc.InstrumentedEmbedder {
	base := openaiTransport.NewEmbedder(openaiTransport.EmbedderConfig{
		ClientConfig: openaiTransport.ClientConfig{APIKey: c.APIKey, BaseURL: c.BaseURL},
		Model:        c.Model,
		Dimensions:   c.Dimensions,
		Provider:     c.Provider,
	}, logger)

	var embedder domain.Embedder = embcache.New(base, store, embcache.Options{
		Prefix:     embcache.DefaultPrefix,
		Model:      c.Model,
		Dimensions: c.Dimensions,
		TTL:        time.Duration(c.CacheTTLHour) * time.Hour,
	}, metrics.EmbeddingCacheTotal, logger)

	logger.Info("Embedder created",
		zap.String("provider", c.Provider),
		zap.String("model", c.Model),
		zap.Int("dimensions", c.Dimensions),
	)
	return embeddinguc.NewInstrumentedEmbedder(embedder, c.Provider, c.Model, c.MaxBatchSize, logger)
}

// sweepSessions drops idle sessions until ctx is cancelled.
func sweepSessions(ctx context.Context, sessions *sessionuc.Store, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.SweepExpired(sessions.Now()); n > 0 {
				logger.Debug("Expired sessions dropped", zap.Int("count", n))
			}
		}
	}
}

func closeReviews(gdb *gorm.DB, logger *zap.Logger) {
	if err := dbMysql.Close(gdb); err != nil {
		logger.Warn("Failed to close reviews database", zap.Error(err))
	}
}
