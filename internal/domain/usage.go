package domain

import (
	"context"
	"sync"
)

type usageKey struct{}

// Usage accumulates the embedding spend of one HTTP request. The handler attaches
// it before calling a service and reads it back for the response headers.
// Safe for concurrent use; a nil *Usage ignores writes.
type Usage struct {
	mu        sync.Mutex
	tokens    int
	calls     int
	cacheHits int
}

// NewContextWithUsage returns ctx carrying a fresh collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext returns the collector in ctx, or nil.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// Record counts one embedding call.
func (u *Usage) Record(res EmbeddingResult) {
	if u == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.tokens += res.TotalTokens
	if res.Cached {
		u.cacheHits++
	}
}

// UsageSnapshot is a point-in-time copy of Usage.
type UsageSnapshot struct {
	Calls     int
	Tokens    int
	CacheHits int
}

// Used reports whether any embedding call was made.
func (s UsageSnapshot) Used() bool { return s.Calls > 0 }

// AllCached reports whether every call was served from the embedding cache.
func (s UsageSnapshot) AllCached() bool { return s.Calls > 0 && s.CacheHits == s.Calls }

// Snapshot copies the counters.
func (u *Usage) Snapshot() UsageSnapshot {
	if u == nil {
		return UsageSnapshot{}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return UsageSnapshot{Calls: u.calls, Tokens: u.tokens, CacheHits: u.cacheHits}
}
