package session

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/metrics"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultMaxHistory  = 20
	DefaultIdleTimeout = 30 * time.Minute
)

// Message is a single stored conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Info describes a session for the listing surface.
type Info struct {
	ID                   string
	LastActivity         time.Time
	MessageCount         int
	MinutesSinceActivity float64
	IsActive             bool
}

// Config bounds session state.
type Config struct {
	MaxHistory  int
	IdleTimeout time.Duration
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

type conversation struct {
	history      []Message
	lastActivity time.Time
}

// Store holds per-conversation history in memory. A single mutex guards every
// operation; each session-touching call drops idle sessions first.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*conversation
	maxHistory int
	idle       time.Duration
	now        func() time.Time
	newID      func() string
	logger     *zap.Logger
}

// New creates a Store.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Store {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		sessions:   make(map[string]*conversation),
		maxHistory: cfg.MaxHistory,
		idle:       cfg.IdleTimeout,
		now:        time.Now,
		newID:      uuid.NewString,
		logger:     logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetOrCreate returns id, creating the session when it does not exist.
// An empty id gets a fresh identifier. An id whose session expired is recreated empty.
func (s *Store) GetOrCreate(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	if id == "" {
		id = s.newID()
	}
	if c, ok := s.sessions[id]; ok {
		c.lastActivity = now
		return id
	}

	s.sessions[id] = &conversation{lastActivity: now}
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.logger.Debug("session created", zap.String("session_id", id))
	return id
}

// Append adds a message to the session history, evicting the oldest beyond capacity.
// A session swept since it was resolved is recreated so a delivered turn is kept.
// An empty id is ignored.
func (s *Store) Append(id, role, content string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	c, ok := s.sessions[id]
	if !ok {
		c = &conversation{}
		s.sessions[id] = c
		metrics.SessionsActive.Set(float64(len(s.sessions)))
		s.logger.Debug("session recreated on append", zap.String("session_id", id))
	}
	c.history = append(c.history, Message{Role: role, Content: content, Timestamp: now})
	if over := len(c.history) - s.maxHistory; over > 0 {
		c.history = append([]Message(nil), c.history[over:]...)
	}
	c.lastActivity = now
}

// RecentContext returns at most the last n messages in chronological order,
// shaped for the generation call.
func (s *Store) RecentContext(id string, n int) []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())

	c, ok := s.sessions[id]
	if !ok || n <= 0 {
		return nil
	}
	start := max(0, len(c.history)-n)
	out := make([]domain.ChatMessage, 0, len(c.history)-start)
	for _, m := range c.history[start:] {
		out = append(out, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// History returns a copy of the full session history.
func (s *Store) History(id string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())

	c, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return append([]Message{}, c.history...), nil
}

// Clear empties the session history. The session itself is kept.
func (s *Store) Clear(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.now())

	c, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	c.history = nil
	return nil
}

// SweepExpired drops sessions idle for longer than the timeout and returns how many were dropped.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

// List describes every held session, most recently active first. It does not sweep,
// so sessions past the timeout are reported inactive until the next session call.
func (s *Store) List(now time.Time) []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Info, 0, len(s.sessions))
	for id, c := range s.sessions {
		since := now.Sub(c.lastActivity)
		out = append(out, Info{
			ID:                   id,
			LastActivity:         c.lastActivity,
			MessageCount:         len(c.history),
			MinutesSinceActivity: math.Round(since.Minutes()*10) / 10,
			IsActive:             since < s.idle,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// Len returns the number of held sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// IdleTimeout returns the configured idle timeout.
func (s *Store) IdleTimeout() time.Duration { return s.idle }

// Now returns the store clock reading.
func (s *Store) Now() time.Time { return s.now() }

func (s *Store) sweepLocked(now time.Time) int {
	dropped := 0
	for id, c := range s.sessions {
		if now.Sub(c.lastActivity) > s.idle {
			delete(s.sessions, id)
			dropped++
		}
	}
	if dropped > 0 {
		metrics.SessionsExpiredTotal.Add(float64(dropped))
		metrics.SessionsActive.Set(float64(len(s.sessions)))
		s.logger.Debug("expired sessions dropped", zap.Int("count", dropped))
	}
	return dropped
}
