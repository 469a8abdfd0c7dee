// Command catalog-loader builds the catalog vector index from a chunk export.
//
//	catalog-loader -file chunks.json [-batch-size 64] [-workers 4] [-fail-fast]
//	               [-recreate | -skip-existing]
//
// The export is either a JSON array of {id, text, metadata} objects or an object
// with a "chunks" array. Configuration is read the same way as the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/config"
	dbRedis "github.com/kailas-cloud/tourguide/internal/db/redis"
	dombatch "github.com/kailas-cloud/tourguide/internal/domain/batch"
	logpkg "github.com/kailas-cloud/tourguide/internal/logger"
	"github.com/kailas-cloud/tourguide/internal/metrics"
	catalogrepo "github.com/kailas-cloud/tourguide/internal/repository/catalog"
	"github.com/kailas-cloud/tourguide/internal/repository/embcache"
	openaiTransport "github.com/kailas-cloud/tourguide/internal/transport/openai"
	batchuc "github.com/kailas-cloud/tourguide/internal/usecase/batch"
	embeddinguc "github.com/kailas-cloud/tourguide/internal/usecase/embedding"
)

func main() {
	file := flag.String("file", "", "path to the chunk export (JSON)")
	batchSize := flag.Int("batch-size", batchuc.DefaultBatchSize, "chunks per embedding call")
	workers := flag.Int("workers", batchuc.DefaultWorkers, "concurrent batches")
	failFast := flag.Bool("fail-fast", false, "stop at the first failed batch")
	recreate := flag.Bool("recreate", false, "drop the index and every stored chunk first")
	skipExisting := flag.Bool("skip-existing", false, "do not re-embed chunks already stored")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "catalog-loader: -file is required")
		flag.Usage()
		os.Exit(2)
	}
	if *recreate && *skipExisting {
		fmt.Fprintln(os.Stderr, "catalog-loader: -recreate and -skip-existing are exclusive")
		os.Exit(2)
	}

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

	if err := run(cfg, *file, *recreate, batchuc.Options{
		BatchSize:    *batchSize,
		Workers:      *workers,
		FailFast:     *failFast,
		SkipExisting: *skipExisting,
	}, logger); err != nil {
		logger.Error("Catalog load failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, file string, recreate bool, opts batchuc.Options, logger *zap.Logger) error {
	chunks, err := readChunks(file)
	if err != nil {
		return err
	}
	logger.Info("Chunk export read", zap.String("file", file), zap.Int("chunks", len(chunks)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:            cfg.Database.Addrs,
		Username:         cfg.Database.Username,
		Password:         cfg.Database.Password,
		ClientName:       "tourguide-loader",
		ConnWriteTimeout: 5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return err
	}

	metrics.RegisterEmbeddingMetrics()

	catalogCfg, err := catalogrepo.FromSettings(cfg.Catalog)
	if err != nil {
		return err
	}
	index := catalogrepo.New(store, catalogCfg, logger)

	if recreate {
		if err := index.Drop(ctx); err != nil {
			return err
		}
		logger.Info("Catalog index dropped", zap.String("index", cfg.Catalog.IndexName))
	}

	base := openaiTransport.NewEmbedder(openaiTransport.EmbedderConfig{
		ClientConfig: openaiTransport.ClientConfig{APIKey: cfg.Embedding.APIKey, BaseURL: cfg.Embedding.BaseURL},
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		Provider:     cfg.Embedding.Provider,
	}, logger)
	cached := embcache.New(base, store, embcache.Options{
		Prefix:     embcache.DefaultPrefix,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		TTL:        time.Duration(cfg.Embedding.CacheTTLHour) * time.Hour,
	}, metrics.EmbeddingCacheTotal, logger)
	embedder := embeddinguc.NewInstrumentedEmbedder(
		cached, cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.MaxBatchSize, logger,
	)

	start := time.Now()
	report, err := batchuc.New(index, embedder, opts, logger).Load(ctx, chunks)
	logReport(logger, report, time.Since(start))
	if err != nil {
		return err
	}
	if _, _, failed := dombatch.Count(report.Results); failed > 0 {
		return fmt.Errorf("%d of %d chunks failed", failed, len(report.Results))
	}
	return nil
}

func logReport(logger *zap.Logger, report batchuc.Report, elapsed time.Duration) {
	ok, skipped, failed := dombatch.Count(report.Results)
	for _, r := range report.Results {
		if r.Err() != nil {
			logger.Warn("Chunk not loaded", zap.String("id", r.ID()), zap.Error(r.Err()))
		}
	}
	logger.Info("Catalog load finished",
		zap.Bool("index_created", report.IndexCreated),
		zap.Int("loaded", ok),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("tokens", report.TotalTokens),
		zap.Duration("elapsed", elapsed),
	)
}
