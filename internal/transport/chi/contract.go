package chi

import (
	"context"
	"time"

	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
	"github.com/kailas-cloud/tourguide/internal/domain/search/filter"
	"github.com/kailas-cloud/tourguide/internal/domain/search/result"
	chatuc "github.com/kailas-cloud/tourguide/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/tourguide/internal/usecase/health"
	reviewuc "github.com/kailas-cloud/tourguide/internal/usecase/review"
	sessionuc "github.com/kailas-cloud/tourguide/internal/usecase/session"
)

// Chat streams answers.
type Chat interface {
	Ask(ctx context.Context, sessionID, query string, w chatuc.EventWriter) (string, error)
}

// Sessions is the conversation store as seen by the session endpoints.
type Sessions interface {
	GetOrCreate(id string) string
	History(id string) ([]sessionuc.Message, error)
	Clear(id string) error
	List(now time.Time) []sessionuc.Info
	Now() time.Time
}

// Searcher runs filtered catalog searches.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, f filter.Filter) ([]result.Ranked, error)
}

// CatalogStats reports catalog aggregates.
type CatalogStats interface {
	Stats(ctx context.Context) (catalog.Stats, error)
	Invalidate()
}

// Reviews summarizes tour reviews.
type Reviews interface {
	Summarize(ctx context.Context, tourID string, force bool) (reviewuc.Summary, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// ManagedCache is a TTL cache exposed through the cache management endpoints.
type ManagedCache interface {
	Len() int
	TTL() time.Duration
	MaxEntries() int
	Clear()
	Delete(key string) bool
}
