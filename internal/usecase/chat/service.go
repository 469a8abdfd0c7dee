// Package chat coordinates answer generation and streams it to the client.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/domain"
	domintent "github.com/kailas-cloud/tourguide/internal/domain/intent"
	logpkg "github.com/kailas-cloud/tourguide/internal/logger"
	"github.com/kailas-cloud/tourguide/internal/metrics"
	"github.com/kailas-cloud/tourguide/internal/prompt"
	"github.com/kailas-cloud/tourguide/internal/usecase/assemble"
)

// Defaults for answer generation.
const (
	DefaultModel           = "deepseek/deepseek-chat"
	DefaultTemperature     = 0.7
	DefaultMaxTokens       = 1500
	DefaultHistoryMessages = 6
	DefaultReplayDelay     = 50 * time.Millisecond
	DefaultStreamBuffer    = 64
	DefaultFlushRunes      = 10
)

// Messages sent in error frames. Upstream error text never reaches the client.
const (
	msgGenerationFailed     = "Xin lỗi, hệ thống đang bận. Vui lòng thử lại sau."
	msgClassificationFailed = "Không thể xác định yêu cầu của bạn. Vui lòng thử lại."
	msgInternal             = "Đã có lỗi xảy ra phía máy chủ."
)

// errClientGone marks a frame that could not be delivered.
var errClientGone = errors.New("client gone")

// Stream outcomes recorded in metrics.
const (
	outcomeDone      = "done"
	outcomeCached    = "cached"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)

// Config tunes generation and pacing.
type Config struct {
	Model           string
	Temperature     float32
	MaxTokens       int
	HistoryMessages int
	// ReplayDelay paces cached replays between chunks.
	ReplayDelay time.Duration
	// StreamBuffer is the capacity of the fragment channel.
	StreamBuffer int
	// FlushRunes is the buffered size that forces a frame.
	FlushRunes  int
	FrontendURL string
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.HistoryMessages == 0 {
		c.HistoryMessages = DefaultHistoryMessages
	}
	if c.ReplayDelay < 0 {
		c.ReplayDelay = 0
	}
	if c.StreamBuffer <= 0 {
		c.StreamBuffer = DefaultStreamBuffer
	}
	if c.FlushRunes <= 0 {
		c.FlushRunes = DefaultFlushRunes
	}
}

// Service answers queries as a stream of frames.
type Service struct {
	router   Router
	assemble Assembler
	sessions Sessions
	answers  AnswerCache
	llm      domain.Streamer
	prompts  *prompt.Set
	cfg      Config
	logger   *zap.Logger
}

// New creates a coordinator. Zero config fields take defaults; ReplayDelay zero
// disables pacing.
func New(
	router Router, asm Assembler, sessions Sessions, answers AnswerCache,
	llm domain.Streamer, prompts *prompt.Set, cfg Config, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Service{
		router:   router,
		assemble: asm,
		sessions: sessions,
		answers:  answers,
		llm:      llm,
		prompts:  prompts,
		cfg:      cfg,
		logger:   logger,
	}
}

// Ask streams the answer to query into w and returns the resolved session id.
// Every failure after the session is resolved has already been reported to w as
// an error frame; the returned error is for logging. Nothing is committed unless
// the terminal frame was written.
func (s *Service) Ask(ctx context.Context, sessionID, query string, w EventWriter) (string, error) {
	sid := s.sessions.GetOrCreate(sessionID)
	key := CacheKey(sid, query)

	if cached, ok := s.answers.Get(key); ok {
		err := s.replay(ctx, sid, cached, w)
		s.record(ctx, "", outcome(err, outcomeCached))
		return sid, err
	}

	plan, err := s.router.Route(ctx, query)
	if err != nil {
		s.fail(w, sid, msgClassificationFailed)
		s.record(ctx, "", outcomeError)
		return sid, fmt.Errorf("route query: %w", err)
	}

	bundle := s.assemble.Build(ctx, assemble.Request{
		Intent:    plan.Intent,
		Query:     query,
		Filter:    plan.Filter,
		TourName:  plan.TourName,
		NumPeople: plan.NumPeople,
	})

	messages, err := s.messages(sid, query, bundle)
	if err != nil {
		s.fail(w, sid, msgInternal)
		s.record(ctx, plan.Intent, outcomeError)
		return sid, err
	}

	stream, err := s.llm.Stream(ctx, messages, domain.GenerationParams{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		s.fail(w, sid, msgGenerationFailed)
		s.record(ctx, plan.Intent, outcomeError)
		return sid, fmt.Errorf("%w: open stream: %w", domain.ErrGenerationFailed, err)
	}
	defer func() { _ = stream.Close() }()

	if err := w.WriteEvent(Frame{SessionID: sid, Cards: bundle.Cards}); err != nil {
		s.record(ctx, plan.Intent, outcomeCancelled)
		return sid, fmt.Errorf("write opening frame: %w", err)
	}

	answer, err := s.pump(ctx, sid, stream, w)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if isCancel(ctx, err) {
			s.record(ctx, plan.Intent, outcomeCancelled)
			return sid, err
		}
		s.fail(w, sid, msgGenerationFailed)
		s.record(ctx, plan.Intent, outcomeError)
		return sid, err
	}

	if err := w.WriteDone(); err != nil {
		s.record(ctx, plan.Intent, outcomeCancelled)
		return sid, fmt.Errorf("write done: %w", err)
	}

	s.answers.Set(key, CachedAnswer{Text: answer, Cards: bundle.Cards})
	s.sessions.Append(sid, domain.RoleUser, query)
	s.sessions.Append(sid, domain.RoleAssistant, answer)
	s.record(ctx, plan.Intent, outcomeDone)

	s.logger.Debug("answer streamed",
		zap.String("session_id", sid),
		zap.String("intent", string(plan.Intent)),
		zap.Int("answer_len", len(answer)),
		zap.Int("cards", len(bundle.Cards)),
	)
	return sid, nil
}

// messages builds system prompt, recent history and the user query.
func (s *Service) messages(sid, query string, b assemble.Bundle) ([]domain.ChatMessage, error) {
	system, err := s.prompts.System(systemTemplate(b.Intent), prompt.SystemData{
		Query:        query,
		Context:      b.PlainContext,
		FrontendURL:  s.cfg.FrontendURL,
		AllowedSlugs: b.AllowedSlugs,
		AllowedNames: b.AllowedNames,
	})
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}

	history := s.sessions.RecentContext(sid, s.cfg.HistoryMessages)
	out := make([]domain.ChatMessage, 0, len(history)+2)
	out = append(out, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	out = append(out, history...)
	out = append(out, domain.ChatMessage{Role: domain.RoleUser, Content: query})
	return out, nil
}

func systemTemplate(it domintent.Intent) string {
	switch it {
	case domintent.TourQuery:
		return prompt.SystemTour
	case domintent.BookingIntent:
		return prompt.SystemBooking
	case domintent.DestinationQuery:
		return prompt.SystemDestination
	default:
		return prompt.SystemGeneral
	}
}

type fragment struct {
	text string
	err  error
}

// pump moves fragments from the upstream stream through a bounded channel and
// writes one frame per flush. It returns the full answer.
func (s *Service) pump(
	ctx context.Context, sid string, stream domain.FragmentStream, w EventWriter,
) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frags := make(chan fragment, s.cfg.StreamBuffer)
	go func() {
		defer close(frags)
		for {
			text, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			f := fragment{text: text, err: err}
			select {
			case frags <- f:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var answer, buf strings.Builder
	flush := func() error {
		if buf.Len() == 0 {
			return nil
		}
		err := w.WriteEvent(Frame{Chunk: buf.String(), SessionID: sid})
		buf.Reset()
		return err
	}

	for {
		select {
		case <-ctx.Done():
			// Unblocks a producer waiting in Recv.
			_ = stream.Close()
			return "", ctx.Err()
		case f, ok := <-frags:
			if !ok {
				if err := flush(); err != nil {
					return "", fmt.Errorf("%w: %w", errClientGone, err)
				}
				return answer.String(), nil
			}
			if f.err != nil {
				return "", fmt.Errorf("%w: recv: %w", domain.ErrGenerationFailed, f.err)
			}
			if f.text == "" {
				continue
			}
			answer.WriteString(f.text)
			buf.WriteString(f.text)
			if utf8.RuneCountInString(buf.String()) >= s.cfg.FlushRunes || isBoundary(f.text) {
				if err := flush(); err != nil {
					_ = stream.Close()
					return "", fmt.Errorf("%w: %w", errClientGone, err)
				}
			}
		}
	}
}

// replay streams a cached answer with the same frame shape as a live one.
func (s *Service) replay(ctx context.Context, sid string, cached CachedAnswer, w EventWriter) error {
	if err := w.WriteEvent(Frame{SessionID: sid, Cards: cached.Cards}); err != nil {
		return fmt.Errorf("write opening frame: %w", err)
	}

	var ticker *time.Ticker
	if s.cfg.ReplayDelay > 0 {
		ticker = time.NewTicker(s.cfg.ReplayDelay)
		defer ticker.Stop()
	}

	for i, chunk := range ReplayChunks(cached.Text) {
		if i > 0 && ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		if err := w.WriteEvent(Frame{Chunk: chunk, SessionID: sid}); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}
	if err := w.WriteDone(); err != nil {
		return fmt.Errorf("write done: %w", err)
	}
	return nil
}

func (s *Service) fail(w EventWriter, sid, msg string) {
	if err := w.WriteEvent(ErrorFrame{Error: msg, SessionID: sid}); err != nil {
		s.logger.Debug("error frame not delivered", zap.String("session_id", sid), zap.Error(err))
	}
}

// record counts the stream outcome and adds it to the request's log line.
func (s *Service) record(ctx context.Context, it domintent.Intent, outcome string) {
	label := string(it)
	if label == "" {
		label = "unknown"
	}
	metrics.AnswerStreamsTotal.WithLabelValues(label, outcome).Inc()
	logpkg.Annotate(ctx, zap.String("intent", label), zap.String("stream_outcome", outcome))
}

func outcome(err error, ok string) string {
	if err != nil {
		return outcomeCancelled
	}
	return ok
}

// isCancel reports whether err stems from the client going away rather than upstream.
func isCancel(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, errClientGone)
}
