package assemble

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
	"github.com/kailas-cloud/tourguide/internal/domain/intent"
	"github.com/kailas-cloud/tourguide/internal/domain/search/filter"
	"github.com/kailas-cloud/tourguide/internal/domain/search/result"
)

// Result sizes per strategy.
const (
	TourTopK     = 5
	FallbackTopK = 3
	BookingTopK  = 3
	GeneralTopK  = 3
)

// ApologyContext replaces the grounding context when retrieval fails.
const ApologyContext = "Xin lỗi, có lỗi xảy ra khi tìm kiếm thông tin."

const (
	descriptionRunes = 200
	defaultTourName  = "Tour du lịch"
)

// Card kinds.
const (
	CardTour     = "tour"
	CardBooking  = "booking"
	CardNotFound = "not_found"
)

// Card is a presentation payload for one catalog item.
type Card struct {
	Kind           string  `json:"kind"`
	Name           string  `json:"name"`
	TourID         string  `json:"tour_id,omitempty"`
	Slug           string  `json:"slug,omitempty"`
	Destination    string  `json:"destination,omitempty"`
	Duration       string  `json:"duration,omitempty"`
	ImageURL       string  `json:"image_url,omitempty"`
	DetailURL      string  `json:"detail_url,omitempty"`
	BookingURL     string  `json:"booking_url,omitempty"`
	Price          string  `json:"price,omitempty"`
	TotalPrice     string  `json:"total_price,omitempty"`
	NumPeople      int     `json:"num_people,omitempty"`
	Status         string  `json:"status,omitempty"`
	AvailableSlots *int    `json:"available_slots,omitempty"`
	Rating         float64 `json:"rating,omitempty"`
	Description    string  `json:"description,omitempty"`
}

// Request is what the assembler needs from routing.
type Request struct {
	Intent    intent.Intent
	Query     string
	Filter    filter.Filter
	TourName  string
	NumPeople int
}

// Bundle is the assembled grounding material for one answer.
type Bundle struct {
	Intent       intent.Intent
	PlainContext string
	Cards        []Card
	// AllowedSlugs and AllowedNames list identifiers present in the retrieved results.
	AllowedSlugs []string
	AllowedNames []string
}

// Config holds link roots.
type Config struct {
	BackendURL  string
	FrontendURL string
}

// Service turns routed queries into grounding context.
type Service struct {
	search Searcher
	stats  StatsProvider
	cfg    Config
	logger *zap.Logger
}

// New creates an assembler.
func New(search Searcher, stats StatsProvider, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Service{search: search, stats: stats, cfg: cfg, logger: logger}
}

// Build dispatches to the strategy for req.Intent. Retrieval failures never
// escape: they become ApologyContext.
func (s *Service) Build(ctx context.Context, req Request) Bundle {
	switch req.Intent {
	case intent.TourQuery:
		return s.tour(ctx, req)
	case intent.BookingIntent:
		return s.booking(ctx, req)
	case intent.DestinationQuery:
		return s.destination(ctx)
	case intent.GeneralQuery:
		return s.general(ctx, req)
	}
	return Bundle{Intent: req.Intent, PlainContext: ApologyContext}
}

func (s *Service) tour(ctx context.Context, req Request) Bundle {
	results, err := s.searchWithFallback(ctx, req.Query, TourTopK, req.Filter)
	if err != nil {
		return s.apology(intent.TourQuery, err)
	}

	b := Bundle{Intent: intent.TourQuery}
	parts := make([]string, 0, len(results))
	for i, r := range results {
		entry, card := s.tourEntry(i+1, r)
		parts = append(parts, entry)
		b.Cards = append(b.Cards, card)
	}
	b.PlainContext = strings.Join(parts, "\n")
	b.AllowedSlugs, b.AllowedNames = whitelist(results)
	return b
}

func (s *Service) booking(ctx context.Context, req Request) Bundle {
	people := req.NumPeople
	if people <= 0 {
		people = 1
	}
	query := req.TourName
	if query == "" {
		query = req.Query
	}

	results, err := s.searchWithFallback(ctx, query, BookingTopK, req.Filter)
	if err != nil {
		return s.apology(intent.BookingIntent, err)
	}
	if len(results) == 0 {
		return notFound(req.TourName, people)
	}

	b := Bundle{Intent: intent.BookingIntent}
	parts := make([]string, 0, len(results))
	for i, r := range results {
		entry, card := s.bookingEntry(i+1, r, people)
		parts = append(parts, entry)
		b.Cards = append(b.Cards, card)
	}
	b.PlainContext = strings.Join(parts, "\n")
	b.AllowedSlugs, b.AllowedNames = whitelist(results)
	return b
}

func (s *Service) destination(ctx context.Context) Bundle {
	st, err := s.stats.Stats(ctx)
	if err != nil {
		return s.apology(intent.DestinationQuery, err)
	}

	var sb strings.Builder
	sb.WriteString("=== THÔNG TIN ĐIỂM ĐẾN ===\n")
	fmt.Fprintf(&sb, "Tổng số điểm đến: %d\n", st.TotalDestinations)
	fmt.Fprintf(&sb, "Danh sách điểm đến: %s\n", strings.Join(st.DestinationList, ", "))
	return Bundle{Intent: intent.DestinationQuery, PlainContext: sb.String()}
}

func (s *Service) general(ctx context.Context, req Request) Bundle {
	results, err := s.search.SearchGeneral(ctx, req.Query, GeneralTopK)
	if err != nil {
		return s.apology(intent.GeneralQuery, err)
	}

	parts := make([]string, 0, len(results))
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("=== THÔNG TIN %d ===\n%s\nĐộ liên quan: %.3f\n", i+1, r.Text(), r.RelevanceScore()))
	}
	return Bundle{
		Intent:       intent.GeneralQuery,
		PlainContext: "\n" + strings.Repeat("=", 50) + "\n" + strings.Join(parts, "\n"),
	}
}

// searchWithFallback runs the filtered search and, when it yields nothing or fails,
// an unfiltered search with FallbackTopK.
func (s *Service) searchWithFallback(
	ctx context.Context, query string, topK int, f filter.Filter,
) ([]result.Ranked, error) {
	results, err := s.search.Search(ctx, query, topK, f)
	if err == nil && len(results) > 0 {
		return results, nil
	}
	if err != nil {
		s.logger.Warn("filtered search failed, retrying unfiltered", zap.Error(err))
	}
	return s.search.Search(ctx, query, FallbackTopK, filter.Filter{})
}

func (s *Service) apology(it intent.Intent, err error) Bundle {
	s.logger.Warn("retrieval unavailable, answering without catalog context",
		zap.String("intent", string(it)), zap.Error(err))
	return Bundle{Intent: it, PlainContext: ApologyContext}
}

func notFound(tourName string, people int) Bundle {
	ctx := fmt.Sprintf("=== KHÔNG TÌM THẤY TOUR ===\nTour yêu cầu: %s\nSố người: %d\n\nTrạng thái: Không tìm thấy tour phù hợp",
		tourName, people)
	return Bundle{
		Intent:       intent.BookingIntent,
		PlainContext: ctx,
		Cards: []Card{{
			Kind:        CardNotFound,
			Name:        tourName,
			NumPeople:   people,
			Description: "Vui lòng thử tìm kiếm với từ khóa khác hoặc liên hệ với chúng tôi để được tư vấn.",
		}},
	}
}

// baseCard fills the fields shared by tour and booking cards and the matching context lines.
func (s *Service) baseCard(kind string, m catalog.Metadata) (Card, []string) {
	name := m.String(catalog.FieldTourName)
	if name == "" {
		name = defaultTourName
	}
	c := Card{
		Kind:        kind,
		Name:        name,
		TourID:      m.ID(catalog.FieldTourID),
		Slug:        m.String(catalog.FieldSlug),
		Destination: m.String(catalog.FieldDestination),
		Duration:    display(m[catalog.FieldDuration]),
		ImageURL:    resolveImage(s.cfg.BackendURL, m.String(catalog.FieldImageURL)),
		DetailURL:   detailURL(s.cfg.FrontendURL, m),
	}

	lines := []string{"Tên tour: " + name}
	if c.Destination != "" {
		lines = append(lines, "Điểm đến: "+c.Destination)
	}
	if c.ImageURL != "" {
		lines = append(lines, "Link ảnh: "+c.ImageURL)
	}
	if c.DetailURL != "" {
		lines = append(lines, "Link chi tiết: "+c.DetailURL)
	}
	if c.Slug != "" {
		lines = append(lines, "Slug: "+c.Slug)
	}
	return c, lines
}

// statusLines appends duration, availability and rating.
func statusLines(c *Card, m catalog.Metadata, lines []string) []string {
	if c.Duration != "" {
		lines = append(lines, "Thời gian: "+c.Duration)
	}
	if slots, ok := m.Float(catalog.FieldAvailableSlots); ok {
		n := int(slots)
		c.AvailableSlots = &n
		c.Status = "Hết chỗ"
		if n > 0 {
			c.Status = "Còn chỗ"
		}
		lines = append(lines, fmt.Sprintf("Tình trạng: %s (%d chỗ)", c.Status, n))
	}
	if rating, ok := m.Float(catalog.FieldRating); ok && rating != 0 {
		c.Rating = rating
		lines = append(lines, "Đánh giá: "+strconv.FormatFloat(rating, 'f', -1, 64)+"/5 sao")
	}
	return lines
}

func (s *Service) tourEntry(i int, r result.Ranked) (string, Card) {
	m := r.Metadata()
	c, lines := s.baseCard(CardTour, m)

	if lo, hi, ok := m.PriceRange(); ok {
		c.Price = priceLabel(lo, hi)
		lines = append(lines, "Giá: "+c.Price+"/người")
	}
	lines = statusLines(&c, m, lines)

	c.Description = truncateRunes(r.Text(), descriptionRunes)
	lines = append(lines, "Mô tả: "+c.Description+"...")

	return fmt.Sprintf("\n--- TOUR %d: %s ---\n%s", i, c.Name, strings.Join(lines, "\n")), c
}

func (s *Service) bookingEntry(i int, r result.Ranked, people int) (string, Card) {
	m := r.Metadata()
	c, lines := s.baseCard(CardBooking, m)
	c.NumPeople = people

	if lo, hi, ok := m.PriceRange(); ok {
		n := float64(people)
		c.Price = priceLabel(lo, hi)
		c.TotalPrice = priceLabel(lo*n, hi*n)
		lines = append(lines,
			"Giá/người: "+c.Price,
			fmt.Sprintf("Tổng giá (%d người): %s", people, c.TotalPrice),
		)
	}
	lines = append(lines, fmt.Sprintf("Số người: %d", people))

	if c.TourID != "" {
		c.BookingURL = fmt.Sprintf("%s/booking/%s?numPeople=%d", s.cfg.FrontendURL, c.TourID, people)
		lines = append(lines, "Link đặt tour: "+c.BookingURL)
	}
	lines = statusLines(&c, m, lines)

	return fmt.Sprintf("\n--- TOUR ĐẶT %d: %s ---\n%s", i, c.Name, strings.Join(lines, "\n")), c
}

// whitelist collects distinct slugs and tour names, in result order.
func whitelist(results []result.Ranked) (slugs, names []string) {
	seenSlug := make(map[string]struct{})
	seenName := make(map[string]struct{})
	for _, r := range results {
		m := r.Metadata()
		if slug := m.String(catalog.FieldSlug); slug != "" {
			if _, ok := seenSlug[slug]; !ok {
				seenSlug[slug] = struct{}{}
				slugs = append(slugs, slug)
			}
		}
		if name := m.String(catalog.FieldTourName); name != "" {
			if _, ok := seenName[name]; !ok {
				seenName[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	return slugs, names
}
