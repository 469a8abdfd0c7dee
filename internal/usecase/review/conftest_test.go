package review

import (
	"context"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/domain/review"
)

type mockRepo struct {
	reviews []review.Review
	err     error
	calls   int
}

func (m *mockRepo) ApprovedByTour(context.Context, string) ([]review.Review, error) {
	m.calls++
	return m.reviews, m.err
}

type mockCompleter struct {
	fn       func(messages []domain.ChatMessage, params domain.GenerationParams) (string, error)
	messages []domain.ChatMessage
	params   domain.GenerationParams
	calls    int
}

func (m *mockCompleter) Complete(
	_ context.Context, messages []domain.ChatMessage, params domain.GenerationParams,
) (string, error) {
	m.calls++
	m.messages = messages
	m.params = params
	return m.fn(messages, params)
}

func reply(s string) func([]domain.ChatMessage, domain.GenerationParams) (string, error) {
	return func([]domain.ChatMessage, domain.GenerationParams) (string, error) { return s, nil }
}
