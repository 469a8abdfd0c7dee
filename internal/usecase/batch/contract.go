package batch

import (
	"context"

	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

// Index is the writable side of the catalog index.
type Index interface {
	EnsureIndex(ctx context.Context) (created bool, err error)
	Upsert(ctx context.Context, chunks []catalog.Chunk, vectors [][]float32) error
	Stored(ctx context.Context, ids []string) ([]bool, error)
}
