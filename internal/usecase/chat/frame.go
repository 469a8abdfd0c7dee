package chat

import (
	"strings"

	"github.com/kailas-cloud/tourguide/internal/usecase/assemble"
)

// Frame is one answer fragment. The opening frame has an empty chunk and carries the cards.
type Frame struct {
	Chunk     string          `json:"chunk"`
	SessionID string          `json:"session_id"`
	Cards     []assemble.Card `json:"cards,omitempty"`
}

// ErrorFrame terminates a failed stream.
type ErrorFrame struct {
	Error     string `json:"error"`
	SessionID string `json:"session_id"`
}

// CachedAnswer is a committed answer with the cards shown alongside it.
type CachedAnswer struct {
	Text  string
	Cards []assemble.Card
}

// CacheKey builds the answer cache key. The query is trimmed, its inner whitespace
// collapsed to single spaces and lowercased, so cosmetic variants share an entry.
func CacheKey(sessionID, query string) string {
	return sessionID + ":" + strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// ReplayChunks splits a cached answer into two-word chunks. Every chunk but the
// last keeps its trailing space, so the chunks concatenate back to text.
func ReplayChunks(text string) []string {
	words := strings.Split(text, " ")
	chunks := make([]string, 0, (len(words)+1)/2)
	for i := 0; i < len(words); i += 2 {
		end := min(i+2, len(words))
		chunk := strings.Join(words[i:end], " ")
		if end < len(words) {
			chunk += " "
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// isBoundary reports whether a fragment ends a sentence or line on its own.
func isBoundary(fragment string) bool {
	switch fragment {
	case ".", "!", "?", "\n":
		return true
	}
	return false
}
