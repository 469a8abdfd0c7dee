package search

import (
	"context"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

// Index is the read-only nearest-neighbor view of the catalog.
type Index interface {
	// SearchKNN returns up to k hits ordered by ascending distance.
	SearchKNN(ctx context.Context, vector []float32, k int) ([]catalog.Hit, error)
	// Size returns the number of indexed chunks.
	Size(ctx context.Context) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
