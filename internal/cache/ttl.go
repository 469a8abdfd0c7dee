// Package cache provides an in-process expiring key-value store for derived results.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/kailas-cloud/tourguide/internal/metrics"
)

// Options configures a TTL cache.
type Options struct {
	// Name labels the cache in metrics and management responses.
	Name string
	// TTL is the maximum entry age. Zero makes every Get a miss.
	TTL time.Duration
	// MaxEntries caps the number of entries. Zero or less means unbounded.
	MaxEntries int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type entry[V any] struct {
	key   string
	value V
	setAt time.Time
	elem  *list.Element
}

// TTL is a mutex-guarded map with lazy expiry and batch eviction of the oldest entries.
// Entries are ordered by set time; re-setting a key moves it to the newest position.
type TTL[V any] struct {
	mu    sync.Mutex
	name  string
	ttl   time.Duration
	max   int
	now   func() time.Time
	items map[string]*entry[V]
	order *list.List // front = oldest
}

// New creates a TTL cache.
func New[V any](opts Options) *TTL[V] {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.TTL < 0 {
		opts.TTL = 0
	}
	return &TTL[V]{
		name:  opts.Name,
		ttl:   opts.TTL,
		max:   opts.MaxEntries,
		now:   now,
		items: make(map[string]*entry[V]),
		order: list.New(),
	}
}

// Get returns the value stored under key. An entry whose age reached the TTL is
// dropped and reported absent.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		c.record("miss")
		return zero, false
	}
	if c.now().Sub(e.setAt) >= c.ttl {
		c.remove(e)
		c.record("expired")
		return zero, false
	}
	c.record("hit")
	return e.value, true
}

// Set stores value under key. Inserting a new key into a full cache first evicts
// the oldest tenth of the entries (at least one).
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.items[key]; ok {
		e.value = value
		e.setAt = now
		c.order.MoveToBack(e.elem)
		return
	}

	if c.max > 0 && len(c.items) >= c.max {
		c.evictOldest(max(1, c.max/10))
	}

	e := &entry[V]{key: key, value: value, setAt: now}
	e.elem = c.order.PushBack(e)
	c.items[key] = e
	c.updateGauge()
}

// Delete removes key and reports whether it was present.
func (c *TTL[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	c.remove(e)
	return true
}

// Clear drops every entry.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry[V])
	c.order.Init()
	c.updateGauge()
}

// Len returns the number of stored entries, including ones that expired but were not read yet.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Name returns the cache name.
func (c *TTL[V]) Name() string { return c.name }

// TTL returns the configured time-to-live.
func (c *TTL[V]) TTL() time.Duration { return c.ttl }

// MaxEntries returns the configured capacity.
func (c *TTL[V]) MaxEntries() int { return c.max }

func (c *TTL[V]) evictOldest(n int) {
	for i := 0; i < n; i++ {
		front := c.order.Front()
		if front == nil {
			return
		}
		c.remove(front.Value.(*entry[V]))
		c.record("evicted")
	}
}

func (c *TTL[V]) remove(e *entry[V]) {
	c.order.Remove(e.elem)
	delete(c.items, e.key)
	c.updateGauge()
}

func (c *TTL[V]) record(result string) {
	metrics.CacheOperationsTotal.WithLabelValues(c.name, result).Inc()
}

func (c *TTL[V]) updateGauge() {
	metrics.CacheEntries.WithLabelValues(c.name).Set(float64(len(c.items)))
}
