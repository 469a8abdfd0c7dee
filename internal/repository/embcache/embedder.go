// Package embcache keeps query and chunk vectors in Redis so repeated texts
// are not sent to the embedding provider again.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/db"
	"github.com/kailas-cloud/tourguide/internal/domain"
)

const (
	// DefaultPrefix is the keyspace shared by the API and the catalog loader.
	DefaultPrefix = "tourguide:emb_cache:"
	// DefaultTTL keeps cached vectors for a week.
	DefaultTTL = 7 * 24 * time.Hour
)

// Lookup paths, used as the "path" label of the cache counter.
const (
	pathQuery = "query"
	pathBatch = "batch"
)

type store interface {
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetMultiWithTTL(ctx context.Context, items []db.KVItem, ttl time.Duration) error
}

// Options configures the cache keyspace.
type Options struct {
	// Prefix namespaces the keys, normally DefaultPrefix.
	Prefix string
	// Model is folded into the key so a model switch never serves stale vectors.
	Model string
	// Dimensions guards against vectors written under another dimension setting.
	Dimensions int
	TTL        time.Duration
}

// CachedEmbedder is a domain.Embedder decorator backed by a key-value store.
// Store failures degrade to misses; they never fail an embedding call.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	opts       Options
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. cacheTotal has labels "path" and "result"; nil disables it.
func New(
	inner domain.Embedder,
	s store,
	opts Options,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		opts:       opts,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed returns a cached vector (Cached set, zero tokens) or calls the inner embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec := c.lookup(ctx, []string{key})[0]; vec != nil {
		c.count(pathQuery, "hit", 1)
		return domain.EmbeddingResult{Embedding: vec, Cached: true}, nil
	}
	c.count(pathQuery, "miss", 1)

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.save(ctx, []db.KVItem{{Key: key, Value: encodeVector(result.Embedding)}})
	return result, nil
}

// BatchEmbed resolves hits with one MGET, embeds only the misses and writes them
// back in one pipeline. Output order follows texts; tokens cover the misses only.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.cacheKey(text)
	}
	out := c.lookup(ctx, keys)

	var missIdx []int
	var missTexts []string
	for i, vec := range out {
		if vec == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	c.count(pathBatch, "hit", len(texts)-len(missIdx))
	c.count(pathBatch, "miss", len(missIdx))

	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	res, err := domain.BatchEmbed(ctx, c.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(res.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"batch embed returned %d vectors for %d texts: %w",
			len(res.Embeddings), len(missTexts), domain.ErrEmbeddingProviderError)
	}

	items := make([]db.KVItem, len(missIdx))
	for j, i := range missIdx {
		out[i] = res.Embeddings[j]
		items[j] = db.KVItem{Key: keys[i], Value: encodeVector(res.Embeddings[j])}
	}
	c.save(ctx, items)

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck proxies to the inner embedder when it supports one.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedEmbedder) count(path, result string, n int) {
	if c.cacheTotal != nil && n > 0 {
		c.cacheTotal.WithLabelValues(path, result).Add(float64(n))
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.opts.Model + "\x00" + text))
	return c.opts.Prefix + hex.EncodeToString(h[:])
}

// lookup returns one entry per key; nil marks a miss, including unreadable entries.
func (c *CachedEmbedder) lookup(ctx context.Context, keys []string) [][]float32 {
	out := make([][]float32, len(keys))
	raw, err := c.store.MGet(ctx, keys)
	if err != nil {
		c.logger.Warn("Embedding cache lookup failed", zap.Int("keys", len(keys)), zap.Error(err))
		return out
	}
	for i, data := range raw {
		if len(data) == 0 {
			continue
		}
		vec, err := decodeVector(data, c.opts.Dimensions)
		if err != nil {
			c.logger.Warn("Discarding cached embedding", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		out[i] = vec
	}
	return out
}

func (c *CachedEmbedder) save(ctx context.Context, items []db.KVItem) {
	if err := c.store.SetMultiWithTTL(ctx, items, c.opts.TTL); err != nil {
		c.logger.Warn("Failed to cache embeddings", zap.Int("items", len(items)), zap.Error(err))
	}
}

// encodeVector lays the vector out as little-endian float32, the same layout the FT index uses.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector parses encodeVector output. dim > 0 also enforces the vector length.
func decodeVector(data []byte, dim int) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("length %d is not a multiple of 4", len(data))
	}
	if dim > 0 && len(data)/4 != dim {
		return nil, fmt.Errorf("got %d dimensions, want %d", len(data)/4, dim)
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
