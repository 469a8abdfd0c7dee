// Package catalog serves catalog-wide aggregates over the indexed chunks.
package catalog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/cache"
	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

// DefaultStatsTTL bounds how stale served aggregates may be.
const DefaultStatsTTL = 5 * time.Minute

const statsKey = "catalog_stats"

// Service computes and caches catalog statistics.
type Service struct {
	source Source
	cache  *cache.TTL[catalog.Stats]
	logger *zap.Logger
}

// New creates a stats service. A zero ttl recomputes on every call.
func New(source Source, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source: source,
		cache:  cache.New[catalog.Stats](cache.Options{Name: "catalog_stats", TTL: ttl, MaxEntries: 1}),
		logger: logger,
	}
}

// Stats returns aggregates over the whole index.
func (s *Service) Stats(ctx context.Context) (catalog.Stats, error) {
	if st, ok := s.cache.Get(statsKey); ok {
		return st, nil
	}

	chunks, err := s.source.All(ctx)
	if err != nil {
		return catalog.Stats{}, fmt.Errorf("%w: list chunks: %w", domain.ErrRetrievalUnavailable, err)
	}
	st := catalog.ComputeStats(chunks)
	s.cache.Set(statsKey, st)

	s.logger.Debug("catalog stats computed",
		zap.Int("chunks", st.TotalChunks),
		zap.Int("destinations", st.TotalDestinations),
	)
	return st, nil
}

// Invalidate drops the cached aggregates.
func (s *Service) Invalidate() {
	s.cache.Clear()
}
