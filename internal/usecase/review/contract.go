package review

import (
	"context"

	"github.com/kailas-cloud/tourguide/internal/domain/review"
)

// Repository reads approved reviews.
type Repository interface {
	ApprovedByTour(ctx context.Context, tourID string) ([]review.Review, error)
}

// Cache holds generated summaries.
type Cache interface {
	Get(key string) (Summary, bool)
	Set(key string, v Summary)
}
