// Package review reads approved tour reviews from MySQL.
package review

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kailas-cloud/tourguide/internal/db"
	"github.com/kailas-cloud/tourguide/internal/db/mysql"
	"github.com/kailas-cloud/tourguide/internal/domain/review"
)

// StatusApproved marks reviews visible to customers.
const StatusApproved = "APPROVED"

// row is the scan target for the approved-reviews query.
type row struct {
	ID        int64     `gorm:"column:id"`
	Rating    int       `gorm:"column:rating"`
	Comment   *string   `gorm:"column:comment"`
	CreatedAt time.Time `gorm:"column:created_at"`
	FullName  *string   `gorm:"column:full_name"`
}

func (r row) toDomain() review.Review {
	out := review.Review{ID: r.ID, Rating: r.Rating, CreatedAt: r.CreatedAt}
	if r.Comment != nil {
		out.Comment = *r.Comment
	}
	if r.FullName != nil {
		out.Author = *r.FullName
	}
	return out
}

// Repo queries reviews through gorm with squirrel-built SQL.
type Repo struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a review repository.
func New(gdb *gorm.DB, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{db: gdb, logger: logger}
}

// approvedQuery selects a tour's approved reviews with author names, newest first.
func approvedQuery(tourID string) (string, []any, error) {
	return sq.Select("r.id", "r.rating", "r.comment", "r.created_at", "u.full_name").
		From("reviews r").
		Join("users u ON r.user_id = u.id").
		Where(sq.Eq{"r.tour_id": tourID, "r.status": StatusApproved}).
		OrderBy("r.created_at DESC").
		ToSql()
}

// ApprovedByTour returns approved reviews of a tour, newest first.
func (r *Repo) ApprovedByTour(ctx context.Context, tourID string) ([]review.Review, error) {
	query, args, err := approvedQuery(tourID)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []row
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: fmt.Errorf("select reviews: %w", err)}
	}

	out := make([]review.Review, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	r.logger.Debug("reviews loaded", zap.String("tour_id", tourID), zap.Int("count", len(out)))
	return out, nil
}

// Ping checks the reviews database connection.
func (r *Repo) Ping(ctx context.Context) error {
	return mysql.Ping(ctx, r.db)
}
