package catalog

import (
	"context"

	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

// Source lists every chunk of the catalog index.
type Source interface {
	All(ctx context.Context) ([]catalog.Chunk, error)
}
