package chat

import (
	"context"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/usecase/assemble"
	"github.com/kailas-cloud/tourguide/internal/usecase/intent"
)

// Router classifies queries and extracts their parameters.
type Router interface {
	Route(ctx context.Context, query string) (intent.Plan, error)
}

// Assembler builds grounding context for a routed query.
type Assembler interface {
	Build(ctx context.Context, req assemble.Request) assemble.Bundle
}

// Sessions holds conversation history.
type Sessions interface {
	GetOrCreate(id string) string
	Append(id, role, content string)
	RecentContext(id string, n int) []domain.ChatMessage
}

// AnswerCache stores finished answers by session and query.
type AnswerCache interface {
	Get(key string) (CachedAnswer, bool)
	Set(key string, v CachedAnswer)
}

// EventWriter delivers frames to the client. Each call must reach the client
// before it returns (flushed).
type EventWriter interface {
	WriteEvent(v any) error
	WriteDone() error
}
