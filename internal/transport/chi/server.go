package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
	"github.com/kailas-cloud/tourguide/internal/domain/search/filter"
	"github.com/kailas-cloud/tourguide/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/tourguide/internal/logger"
	healthuc "github.com/kailas-cloud/tourguide/internal/usecase/health"
	reviewuc "github.com/kailas-cloud/tourguide/internal/usecase/review"
)

const (
	// MaxQueryRunes bounds the user query; longer input is rejected.
	MaxQueryRunes = 2000
	// MaxBodyBytes caps every JSON request body.
	MaxBodyBytes = 64 << 10

	defaultSearchTopK = 5
	maxSearchTopK     = 50
	descriptionRunes  = 200
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Deps are the use cases served over HTTP. Reviews may be nil when no reviews database is configured.
type Deps struct {
	Chat        Chat
	Sessions    Sessions
	Search      Searcher
	Catalog     CatalogStats
	Reviews     Reviews
	Health      HealthChecker
	ReviewCache ManagedCache
	AnswerCache ManagedCache
}

// Server implements ServerInterface.
type Server struct {
	Deps
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	s := &Server{Deps: deps, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrQueryTooLong, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(filter.ErrInvalidFilter, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, ErrorCodeSessionNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusServiceUnavailable, ErrorCodeRetrievalUnavailable),
		sentinelHandler(domain.ErrReviewsUnavailable, http.StatusServiceUnavailable, ErrorCodeReviewsUnavailable),
		sentinelHandler(domain.ErrSummaryUnavailable, http.StatusBadGateway, ErrorCodeSummaryUnavailable),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, ErrorCodeGenerationFailed),
	}
	return s
}

type askRequest struct {
	Query     *string `json:"query"`
	SessionID string  `json:"session_id"`
}

// Ask handles POST /ask. Validation failures are plain JSON; everything after
// the stream opens is reported in-band as SSE frames.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeBody(w, r, &req) {
		return
	}
	query, err := normalizeQuery(req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx := r.Context()
	if req.SessionID != "" {
		ctx = logpkg.With(ctx, zap.String("session_id", req.SessionID))
	}
	sid, err := s.Chat.Ask(ctx, req.SessionID, query, sse)
	logpkg.Annotate(ctx, zap.String("resolved_session_id", sid), zap.Int("query_runes", utf8.RuneCountInString(query)))
	if err != nil {
		logpkg.FromContext(ctx).Warn("answer stream ended with error", zap.Error(err))
	}
}

// decodeBody reads a JSON body of at most MaxBodyBytes into v and answers the
// client itself when it cannot.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, ErrorCodeValidationFailed,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid request body")
	return false
}

// normalizeQuery trims the query and rejects blank or over-long input.
func normalizeQuery(q *string) (string, error) {
	if q == nil {
		return "", domain.ErrEmptyQuery
	}
	query := strings.TrimSpace(*q)
	if query == "" {
		return "", domain.ErrEmptyQuery
	}
	if n := utf8.RuneCountInString(query); n > MaxQueryRunes {
		return "", fmt.Errorf("%w: %d characters, limit %d", domain.ErrQueryTooLong, n, MaxQueryRunes)
	}
	return query, nil
}

// NewSession handles POST /session/new.
func (s *Server) NewSession(w http.ResponseWriter, _ *http.Request) {
	id := s.Sessions.GetOrCreate("")
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"message":    "Session mới đã được tạo",
	})
}

// GetSessionHistory handles GET /session/{session_id}/history.
func (s *Server) GetSessionHistory(w http.ResponseWriter, _ *http.Request, sessionID string) {
	history, err := s.Sessions.History(sessionID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     sessionID,
		"history":        history,
		"total_messages": len(history),
	})
}

// ClearSession handles POST /session/{session_id}/clear.
func (s *Server) ClearSession(w http.ResponseWriter, _ *http.Request, sessionID string) {
	if err := s.Sessions.Clear(sessionID); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"message":    "Lịch sử hội thoại đã được xóa",
	})
}

type sessionView struct {
	SessionID                string    `json:"session_id"`
	LastActivity             time.Time `json:"last_activity"`
	MessagesCount            int       `json:"messages_count"`
	TimeSinceActivityMinutes float64   `json:"time_since_activity_minutes"`
	IsActive                 bool      `json:"is_active"`
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, _ *http.Request) {
	infos := s.Sessions.List(s.Sessions.Now())
	views := make([]sessionView, len(infos))
	active := 0
	for i, in := range infos {
		views[i] = sessionView{
			SessionID:                in.ID,
			LastActivity:             in.LastActivity,
			MessagesCount:            in.MessageCount,
			TimeSinceActivityMinutes: in.MinutesSinceActivity,
			IsActive:                 in.IsActive,
		}
		if in.IsActive {
			active++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_sessions":  len(views),
		"active_sessions": active,
		"sessions":        views,
	})
}

type searchRequest struct {
	Query   string         `json:"query"`
	Filters map[string]any `json:"filters"`
	TopK    *int           `json:"top_k"`
}

type priceRangeView struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

type searchResultView struct {
	TourID         string         `json:"tour_id,omitempty"`
	TourName       string         `json:"tour_name,omitempty"`
	ProductName    string         `json:"product_name,omitempty"`
	Slug           string         `json:"slug,omitempty"`
	Destination    string         `json:"destination,omitempty"`
	BrandName      string         `json:"brand_name,omitempty"`
	PriceRange     priceRangeView `json:"price_range"`
	Rating         *float64       `json:"rating"`
	InStock        *bool          `json:"in_stock"`
	StockQuantity  *float64       `json:"stock_quantity"`
	Categories     []string       `json:"categories"`
	Attributes     []string       `json:"attributes"`
	Description    string         `json:"description"`
	RelevanceScore float64        `json:"relevance_score"`
	ImageURL       string         `json:"image_url,omitempty"`
}

// SearchCatalog handles POST /search.
func (s *Server) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	query, err := normalizeQuery(&req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	topK := defaultSearchTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK <= 0 || topK > maxSearchTopK {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("top_k must be between 1 and %d", maxSearchTopK))
		return
	}

	f, err := filter.Parse(req.Filters)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.Search.Search(ctx, query, topK, f)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	setEmbeddingHeaders(w, usage)

	views := make([]searchResultView, len(results))
	for i := range results {
		views[i] = searchResultToView(results[i])
	}
	applied := req.Filters
	if applied == nil {
		applied = map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":         views,
		"total":           len(views),
		"query":           query,
		"filters_applied": applied,
	})
}

// GetStats handles GET /stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Catalog.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type summaryRequest struct {
	ProductID    flexibleID `json:"productId"`
	TourID       flexibleID `json:"tourId"`
	ForceRefresh bool       `json:"forceRefresh"`
}

// SummarizeReviews handles POST /SumaryReview.
func (s *Server) SummarizeReviews(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := req.ProductID.or(req.TourID)
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "productId is required")
		return
	}
	if s.Reviews == nil {
		s.handleDomainError(w, domain.ErrReviewsUnavailable)
		return
	}

	summary, err := s.Reviews.Summarize(r.Context(), id, req.ForceRefresh)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type cacheStatsView struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	TTLHours   float64 `json:"ttl_hours"`
}

// GetCacheStats handles GET /CacheStats.
func (s *Server) GetCacheStats(w http.ResponseWriter, _ *http.Request) {
	view := func(c ManagedCache) cacheStatsView {
		return cacheStatsView{Entries: c.Len(), MaxEntries: c.MaxEntries(), TTLHours: c.TTL().Hours()}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats": map[string]cacheStatsView{
			"review_cache": view(s.ReviewCache),
			"query_cache":  view(s.AnswerCache),
		},
	})
}

type cacheConfigView struct {
	TTLSeconds     float64 `json:"ttl_seconds"`
	TTLHours       float64 `json:"ttl_hours"`
	MaxEntries     int     `json:"max_entries"`
	CurrentEntries int     `json:"current_entries"`
}

// GetCacheConfig handles GET /CacheConfig.
func (s *Server) GetCacheConfig(w http.ResponseWriter, _ *http.Request) {
	view := func(c ManagedCache) cacheConfigView {
		return cacheConfigView{
			TTLSeconds:     c.TTL().Seconds(),
			TTLHours:       c.TTL().Hours(),
			MaxEntries:     c.MaxEntries(),
			CurrentEntries: c.Len(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]cacheConfigView{
		"review_cache": view(s.ReviewCache),
		"query_cache":  view(s.AnswerCache),
	})
}

type clearCacheRequest struct {
	ClearAll  bool       `json:"clearAll"`
	TourID    flexibleID `json:"tourId"`
	ProductID flexibleID `json:"productId"`
}

// ClearCache handles POST /ClearCache.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	var req clearCacheRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.ClearAll {
		s.ReviewCache.Clear()
		s.AnswerCache.Clear()
		s.Catalog.Invalidate()
		logpkg.FromContext(r.Context()).Info("caches cleared")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Đã xóa toàn bộ cache"})
		return
	}

	id := req.TourID.or(req.ProductID)
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "tourId or clearAll=true is required")
		return
	}

	if s.ReviewCache.Delete(reviewuc.CacheKey(id)) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Đã xóa cache cho tour " + id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Không tìm thấy cache để xóa"})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.Health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status":       report.Status,
		"checks":       report.Checks,
		"index_chunks": report.IndexChunks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.Usage) {
	snap := usage.Snapshot()
	if !snap.Used() {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(snap.Tokens))
	if snap.AllCached() {
		w.Header().Set("X-Embedding-Cache", "hit")
	} else {
		w.Header().Set("X-Embedding-Cache", "miss")
	}
}

func searchResultToView(r result.Ranked) searchResultView {
	m := r.Metadata()
	v := searchResultView{
		TourID:         m.ID(catalog.FieldTourID),
		TourName:       m.String(catalog.FieldTourName),
		ProductName:    m.String(catalog.FieldProductName),
		Slug:           m.String(catalog.FieldSlug),
		Destination:    m.String(catalog.FieldDestination),
		BrandName:      m.String(catalog.FieldBrand),
		Categories:     nonNil(m.Strings(catalog.FieldCategories)),
		Attributes:     nonNil(m.Strings(catalog.FieldAttributes)),
		Description:    truncateRunes(r.Text(), descriptionRunes) + "...",
		RelevanceScore: r.RelevanceScore(),
		ImageURL:       m.String(catalog.FieldImageURL),
	}
	if f, ok := m.Float(catalog.FieldMinPrice); ok {
		v.PriceRange.Min = &f
	}
	if f, ok := m.Float(catalog.FieldMaxPrice); ok {
		v.PriceRange.Max = &f
	}
	if f, ok := m.Float(catalog.FieldRating); ok {
		v.Rating = &f
	}
	if b, ok := m.Bool(catalog.FieldInStock); ok {
		v.InStock = &b
	}
	if f, ok := m.Float(catalog.FieldStockQuantity); ok {
		v.StockQuantity = &f
	}
	return v
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// flexibleID accepts a JSON string or number.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexibleID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*f = flexibleID(strings.TrimSpace(s))
	return nil
}

func (f flexibleID) or(other flexibleID) string {
	if f != "" {
		return string(f)
	}
	return string(other)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrEmptyQuery,
		domain.ErrQueryTooLong,
		filter.ErrInvalidFilter,
		domain.ErrSessionNotFound,
		domain.ErrEmbeddingProviderError,
		domain.ErrRetrievalUnavailable,
		domain.ErrReviewsUnavailable,
		domain.ErrSummaryUnavailable,
		domain.ErrGenerationFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
