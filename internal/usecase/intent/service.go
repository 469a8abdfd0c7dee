package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/domain"
	domintent "github.com/kailas-cloud/tourguide/internal/domain/intent"
	"github.com/kailas-cloud/tourguide/internal/domain/search/filter"
	"github.com/kailas-cloud/tourguide/internal/prompt"
)

// Generation limits for the routing calls.
const (
	classifyMaxTokens = 10
	filtersMaxTokens  = 500
	bookingMaxTokens  = 300
	routeTemperature  = 0.1
)

var (
	jsonObject = regexp.MustCompile(`(?s)\{.*\}`)
	jsonFence  = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
)

// Plan is the routing decision for one query.
type Plan struct {
	Intent domintent.Intent
	// Filter is set for tour queries and for bookings with a tour name.
	Filter filter.Filter
	// TourName and NumPeople are set for bookings.
	TourName      string
	NumPeople     int
	BookingIntent bool
}

// Service classifies queries and extracts intent-specific parameters.
type Service struct {
	llm     Completer
	prompts *prompt.Set
	model   string
	logger  *zap.Logger
}

// New creates a router. model is the generation model used for classification and extraction.
func New(llm Completer, prompts *prompt.Set, model string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{llm: llm, prompts: prompts, model: model, logger: logger}
}

// Route classifies query and extracts its parameters. Classification failures wrap
// domain.ErrClassificationFailed; extraction failures degrade to defaults.
func (s *Service) Route(ctx context.Context, query string) (Plan, error) {
	it, err := s.Classify(ctx, query)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{Intent: it}
	switch it {
	case domintent.TourQuery:
		plan.Filter = s.tourFilter(ctx, query)
	case domintent.BookingIntent:
		b := s.extractBooking(ctx, query)
		plan.TourName = b.TourName
		plan.NumPeople = b.NumPeople
		plan.BookingIntent = b.BookingIntent
		if b.TourName != "" {
			plan.Filter = filter.New(filter.NewNameContains(filter.KeyTourName, strings.ToLower(b.TourName)))
		}
	case domintent.DestinationQuery, domintent.GeneralQuery:
	}

	s.logger.Debug("query routed",
		zap.String("intent", string(plan.Intent)),
		zap.Int("filters", plan.Filter.Len()),
	)
	return plan, nil
}

// Classify asks the model for an intent label.
func (s *Service) Classify(ctx context.Context, query string) (domintent.Intent, error) {
	if strings.TrimSpace(query) == "" {
		return "", domain.ErrEmptyQuery
	}
	label, err := s.complete(ctx, prompt.Classify, query, classifyMaxTokens)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrClassificationFailed, err)
	}
	return domintent.Parse(label)
}

func (s *Service) tourFilter(ctx context.Context, query string) filter.Filter {
	f, err := s.extractFilters(ctx, query)
	if err != nil {
		s.logger.Warn("filter extraction failed, searching without extracted filters", zap.Error(err))
		f = filter.Filter{}
	}
	return ApplyKeywordOverride(f, query)
}

func (s *Service) extractFilters(ctx context.Context, query string) (filter.Filter, error) {
	out, err := s.complete(ctx, prompt.ExtractFilters, query, filtersMaxTokens)
	if err != nil {
		return filter.Filter{}, err
	}
	match := jsonObject.FindString(out)
	if match == "" {
		return filter.Filter{}, errors.New("no JSON object in extractor output")
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return filter.Filter{}, fmt.Errorf("decode filters: %w", err)
	}
	for k, v := range raw {
		if v == nil {
			delete(raw, k)
		}
	}
	return filter.Parse(raw)
}

type booking struct {
	TourName      string
	NumPeople     int
	BookingIntent bool
}

type bookingDTO struct {
	TourName      string `json:"tour_name"`
	NumPeople     any    `json:"num_people"`
	BookingIntent *bool  `json:"booking_intent"`
}

func (s *Service) extractBooking(ctx context.Context, query string) booking {
	def := booking{NumPeople: 1}

	out, err := s.complete(ctx, prompt.ExtractBooking, query, bookingMaxTokens)
	if err != nil {
		s.logger.Warn("booking extraction failed, using defaults", zap.Error(err))
		return def
	}
	dto, err := decodeBooking(out)
	if err != nil {
		s.logger.Warn("booking extraction unparsable, using defaults", zap.Error(err))
		return def
	}

	b := booking{
		TourName:  strings.TrimSpace(dto.TourName),
		NumPeople: partySize(dto.NumPeople),
	}
	if dto.BookingIntent != nil {
		b.BookingIntent = *dto.BookingIntent
	}
	return b
}

func decodeBooking(out string) (bookingDTO, error) {
	var dto bookingDTO
	text := strings.TrimSpace(out)
	if err := json.Unmarshal([]byte(text), &dto); err == nil {
		return dto, nil
	}
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &dto); err != nil {
			return bookingDTO{}, fmt.Errorf("decode fenced booking: %w", err)
		}
		return dto, nil
	}
	if m := jsonObject.FindString(text); m != "" {
		if err := json.Unmarshal([]byte(m), &dto); err != nil {
			return bookingDTO{}, fmt.Errorf("decode booking: %w", err)
		}
		return dto, nil
	}
	return bookingDTO{}, errors.New("no JSON object in extractor output")
}

// partySize normalizes num_people; anything missing or non-positive becomes 1.
func partySize(v any) int {
	n := 0
	switch x := v.(type) {
	case float64:
		n = int(x)
	case string:
		n, _ = strconv.Atoi(strings.TrimSpace(x))
	}
	if n <= 0 {
		return 1
	}
	return n
}

func (s *Service) complete(ctx context.Context, name, query string, maxTokens int) (string, error) {
	text, err := s.prompts.Render(name, map[string]string{"Query": query})
	if err != nil {
		return "", err
	}
	out, err := s.llm.Complete(ctx,
		[]domain.ChatMessage{{Role: domain.RoleUser, Content: text}},
		domain.GenerationParams{Model: s.model, Temperature: routeTemperature, MaxTokens: maxTokens},
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}
