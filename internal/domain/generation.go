package domain

import "context"

// Chat roles understood by the generation service.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the minimal {role, content} shape consumed by the generation call.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams configures a single generation call.
type GenerationParams struct {
	Model       string
	Temperature float32
	MaxTokens   int
	JSON        bool // request a json_object response format
}

// FragmentStream yields incremental text fragments. Recv returns io.EOF after the last fragment.
// Close releases the underlying connection and is safe to call more than once.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}

// Completer runs a non-streaming generation call and returns the full text.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, params GenerationParams) (string, error)
}

// Streamer opens a streaming generation call.
type Streamer interface {
	Stream(ctx context.Context, messages []ChatMessage, params GenerationParams) (FragmentStream, error)
}
