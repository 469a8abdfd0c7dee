package intent

import (
	"context"

	"github.com/kailas-cloud/tourguide/internal/domain"
)

// Completer runs a non-streaming generation call.
type Completer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage, params domain.GenerationParams) (string, error)
}
