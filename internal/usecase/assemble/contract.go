package assemble

import (
	"context"

	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
	"github.com/kailas-cloud/tourguide/internal/domain/search/filter"
	"github.com/kailas-cloud/tourguide/internal/domain/search/result"
)

// Searcher runs catalog retrieval.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, f filter.Filter) ([]result.Ranked, error)
	SearchGeneral(ctx context.Context, query string, topK int) ([]result.Ranked, error)
}

// StatsProvider returns catalog-wide aggregates.
type StatsProvider interface {
	Stats(ctx context.Context) (catalog.Stats, error)
}
