// Package db defines the storage contracts shared by the Redis and MySQL backends.
package db

import (
	"context"
	"time"
)

// Store is everything the Redis backend offers. Only the composition root
// sees it; repositories declare the slice they use.
type Store interface {
	Pinger
	ChunkStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one chunk hash to write. Vectors are stored as FLOAT32 blobs
// under their field names, next to the plain string Fields.
type HashSetItem struct {
	Key     string
	Fields  map[string]string
	Vectors map[string][]float32
}

// ChunkStore writes catalog chunks and probes which ones are already loaded.
type ChunkStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	ExistsMulti(ctx context.Context, keys []string) ([]bool, error)
}

// KVItem is a binary value addressed by key.
type KVItem struct {
	Key   string
	Value []byte
}

// KVStore backs the embedding cache.
type KVStore interface {
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetMultiWithTTL(ctx context.Context, items []KVItem, ttl time.Duration) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs FT.SEARCH in its three shapes: KNN, paged listing, and count.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
