// Package review summarizes customer reviews of a tour with the generation service.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/domain/review"
	"github.com/kailas-cloud/tourguide/internal/prompt"
)

// Generation defaults for summaries.
const (
	DefaultModel       = "deepseek/deepseek-r1-0528-qwen3-8b:free"
	DefaultMaxTokens   = 800
	DefaultTemperature = 0.5
)

// Payload returned when a tour has no approved reviews.
const (
	noDataPositive = "Sản phẩm này chưa có đánh giá nào từ khách hàng."
	noDataNegative = "Chưa có phản hồi tiêu cực nào được ghi nhận."
	noDataSummary  = "Hiện tại chưa có đủ thông tin đánh giá từ khách hàng để tạo tóm tắt cho sản phẩm này."
)

// Summary is the review digest served to clients.
type Summary struct {
	Positive           Points      `json:"positive"`
	Negative           Points      `json:"negative"`
	Summary            string      `json:"summary"`
	TotalReviews       int         `json:"total_reviews"`
	AverageRating      float64     `json:"average_rating,omitempty"`
	RatingDistribution map[int]int `json:"rating_distribution,omitempty"`
	HasData            bool        `json:"has_data"`
	Cached             bool        `json:"cached"`
	GeneratedAt        *time.Time  `json:"generated_at,omitempty"`
}

// Points accepts a JSON string or a list of strings. Lists are joined one item per line.
type Points string

// UnmarshalJSON implements json.Unmarshaler.
func (p *Points) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Points(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("points: expected string or list of strings: %w", err)
	}
	*p = Points(strings.Join(list, "\n"))
	return nil
}

// NoData is the fixed payload for tours without reviews.
func NoData() Summary {
	return Summary{
		Positive: noDataPositive,
		Negative: noDataNegative,
		Summary:  noDataSummary,
	}
}

// CacheKey is the review cache key for a tour.
func CacheKey(tourID string) string {
	return "reviews_tour_" + tourID
}

// Config selects the summary model.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// Service produces cached review summaries.
type Service struct {
	repo    Repository
	llm     domain.Completer
	prompts *prompt.Set
	cache   Cache
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a summarizer.
func New(repo Repository, llm domain.Completer, prompts *prompt.Set, c Cache, cfg Config, logger *zap.Logger) *Service {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, llm: llm, prompts: prompts, cache: c, cfg: cfg, now: time.Now, logger: logger}
}

type promptReview struct {
	Rating  int
	Comment string
}

type promptData struct {
	TotalReviews  int
	AverageRating float64
	Distribution  string
	Reviews       []promptReview
}

// Summarize returns the digest for tourID, serving the cache unless force is set.
// Tours without reviews get NoData, which is never cached.
func (s *Service) Summarize(ctx context.Context, tourID string, force bool) (Summary, error) {
	if strings.TrimSpace(tourID) == "" {
		return Summary{}, fmt.Errorf("%w: tour id is required", domain.ErrInvalidRequest)
	}
	key := CacheKey(tourID)

	if !force {
		if sum, ok := s.cache.Get(key); ok {
			sum.Cached = true
			return sum, nil
		}
	}

	reviews, err := s.repo.ApprovedByTour(ctx, tourID)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", domain.ErrReviewsUnavailable, err)
	}
	if len(reviews) == 0 {
		return NoData(), nil
	}

	st := review.Aggregate(reviews)
	data := promptData{
		TotalReviews:  st.Total,
		AverageRating: st.Average,
		Distribution:  st.DistributionLabel(),
		Reviews:       make([]promptReview, 0, len(reviews)),
	}
	for _, r := range reviews {
		data.Reviews = append(data.Reviews, promptReview{Rating: r.Rating, Comment: r.Comment})
	}
	text, err := s.prompts.Render(prompt.ReviewSummary, data)
	if err != nil {
		return Summary{}, err
	}

	raw, err := s.llm.Complete(ctx, []domain.ChatMessage{{Role: domain.RoleUser, Content: text}}, domain.GenerationParams{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("%w: summarize reviews: %w", domain.ErrGenerationFailed, err)
	}

	sum, err := parseSummary(raw)
	if err != nil {
		s.logger.Warn("review summary is not valid JSON",
			zap.String("tour_id", tourID), zap.Int("response_len", len(raw)), zap.Error(err))
		return Summary{}, err
	}

	now := s.now()
	sum.TotalReviews = st.Total
	sum.AverageRating = st.Average
	sum.RatingDistribution = st.Distribution
	sum.HasData = true
	sum.GeneratedAt = &now
	s.cache.Set(key, sum)

	s.logger.Info("review summary generated", zap.String("tour_id", tourID), zap.Int("reviews", st.Total))
	return sum, nil
}

var errEmptySummary = errors.New("summary fields are empty")

// parseSummary decodes the model output, tolerating a fenced code block.
func parseSummary(raw string) (Summary, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	var sum Summary
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &sum); err != nil {
		return Summary{}, fmt.Errorf("%w: %w", domain.ErrSummaryUnavailable, err)
	}
	if sum.Positive == "" && sum.Negative == "" && sum.Summary == "" {
		return Summary{}, fmt.Errorf("%w: %w", domain.ErrSummaryUnavailable, errEmptySummary)
	}
	// Model-supplied bookkeeping fields are not trusted.
	sum.Cached = false
	sum.HasData = false
	sum.GeneratedAt = nil
	return sum, nil
}
