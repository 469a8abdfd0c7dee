package chi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
	"github.com/kailas-cloud/tourguide/internal/domain/search/filter"
	"github.com/kailas-cloud/tourguide/internal/domain/search/result"
	chatuc "github.com/kailas-cloud/tourguide/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/tourguide/internal/usecase/health"
	reviewuc "github.com/kailas-cloud/tourguide/internal/usecase/review"
	sessionuc "github.com/kailas-cloud/tourguide/internal/usecase/session"
)

type mockChat struct {
	askFn func(ctx context.Context, sessionID, query string, w chatuc.EventWriter) (string, error)
}

func (m *mockChat) Ask(ctx context.Context, sessionID, query string, w chatuc.EventWriter) (string, error) {
	if m.askFn != nil {
		return m.askFn(ctx, sessionID, query, w)
	}
	return sessionID, w.WriteDone()
}

type mockSessions struct {
	history map[string][]sessionuc.Message
	infos   []sessionuc.Info
	created int
}

func (m *mockSessions) GetOrCreate(id string) string {
	if id == "" {
		m.created++
		return "new-session"
	}
	return id
}

func (m *mockSessions) History(id string) ([]sessionuc.Message, error) {
	h, ok := m.history[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return h, nil
}

func (m *mockSessions) Clear(id string) error {
	if _, ok := m.history[id]; !ok {
		return domain.ErrSessionNotFound
	}
	m.history[id] = nil
	return nil
}

func (m *mockSessions) List(_ time.Time) []sessionuc.Info { return m.infos }

func (m *mockSessions) Now() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

type mockSearcher struct {
	searchFn func(ctx context.Context, query string, topK int, f filter.Filter) ([]result.Ranked, error)
}

func (m *mockSearcher) Search(ctx context.Context, query string, topK int, f filter.Filter) ([]result.Ranked, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, topK, f)
	}
	return nil, nil
}

type mockCatalog struct {
	stats       catalog.Stats
	err         error
	invalidated bool
}

func (m *mockCatalog) Invalidate() { m.invalidated = true }

func (m *mockCatalog) Stats(_ context.Context) (catalog.Stats, error) { return m.stats, m.err }

type mockReviews struct {
	summarizeFn func(ctx context.Context, tourID string, force bool) (reviewuc.Summary, error)
}

func (m *mockReviews) Summarize(ctx context.Context, tourID string, force bool) (reviewuc.Summary, error) {
	return m.summarizeFn(ctx, tourID, force)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type mockCache struct {
	keys    map[string]bool
	ttl     time.Duration
	max     int
	cleared bool
}

func (m *mockCache) Len() int           { return len(m.keys) }
func (m *mockCache) TTL() time.Duration { return m.ttl }
func (m *mockCache) MaxEntries() int    { return m.max }
func (m *mockCache) Clear()             { m.cleared = true; m.keys = map[string]bool{} }

func (m *mockCache) Delete(key string) bool {
	if !m.keys[key] {
		return false
	}
	delete(m.keys, key)
	return true
}

type testEnv struct {
	handler  http.Handler
	chat     *mockChat
	sessions *mockSessions
	search   *mockSearcher
	catalog  *mockCatalog
	reviews  *mockReviews
	health   *mockHealth
	review   *mockCache
	answer   *mockCache
}

func newTestEnv(t *testing.T, apiKeys ...string) *testEnv {
	t.Helper()
	env := &testEnv{
		chat:     &mockChat{},
		sessions: &mockSessions{history: map[string][]sessionuc.Message{}},
		search:   &mockSearcher{},
		catalog:  &mockCatalog{},
		reviews:  &mockReviews{},
		health:   &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
		review:   &mockCache{keys: map[string]bool{}, ttl: 24 * time.Hour, max: 1000},
		answer:   &mockCache{keys: map[string]bool{}, ttl: time.Hour, max: 1000},
	}
	srv := NewServer(Deps{
		Chat:        env.chat,
		Sessions:    env.sessions,
		Search:      env.search,
		Catalog:     env.catalog,
		Reviews:     env.reviews,
		Health:      env.health,
		ReviewCache: env.review,
		AnswerCache: env.answer,
	}, zap.NewNop())
	env.handler = HandlerWithOptions(srv, ChiServerOptions{
		AdminMiddlewares: []MiddlewareFunc{BearerAuthMiddleware(apiKeys)},
	})
	return env
}
