package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/config"
	"github.com/kailas-cloud/tourguide/internal/db"
	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

// Hash field names of a stored chunk.
const (
	FieldText     = "text"
	FieldMetadata = "metadata"
	FieldVector   = "vector"
)

const listPageSize = 500

// store is the consumer interface for catalog persistence (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	ExistsMulti(ctx context.Context, keys []string) ([]bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config names the index and key layout of the catalog.
type Config struct {
	IndexName  string
	KeyPrefix  string
	Dimensions int
	Distance   db.DistanceMetric
	Algorithm  db.VectorAlgorithm
	HNSW       db.HNSWParams
}

// FromSettings converts the catalog section of the service configuration.
func FromSettings(c config.CatalogConfig) (Config, error) {
	metric, err := db.ParseDistanceMetric(c.DistanceMetric)
	if err != nil {
		return Config{}, err
	}
	algo, err := db.ParseVectorAlgorithm(c.Algorithm)
	if err != nil {
		return Config{}, err
	}
	return Config{
		IndexName:  c.IndexName,
		KeyPrefix:  c.KeyPrefix,
		Dimensions: c.Dimensions,
		Distance:   metric,
		Algorithm:  algo,
		HNSW: db.HNSWParams{
			M:              c.HNSWM,
			EFConstruction: c.HNSWEFConstruct,
			EFRuntime:      c.HNSWEFRuntime,
		},
	}, nil
}

// Repo reads and writes catalog chunks stored as hashes under a vector index.
type Repo struct {
	store  store
	cfg    Config
	logger *zap.Logger
}

// New creates a catalog repository.
func New(s store, cfg Config, logger *zap.Logger) *Repo {
	return &Repo{store: s, cfg: cfg, logger: logger}
}

// SearchKNN returns up to k chunks nearest to vector, ordered by ascending distance.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, k int) ([]catalog.Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.cfg.IndexName,
		VectorField:  FieldVector,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{FieldText, FieldMetadata},
	})
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w", r.cfg.IndexName, err)
	}
	if sr == nil {
		return nil, nil
	}

	hits := make([]catalog.Hit, 0, len(sr.Entries))
	for i := range sr.Entries {
		e := &sr.Entries[i]
		hits = append(hits, catalog.Hit{Chunk: r.toChunk(e), Distance: e.Distance})
	}
	return hits, nil
}

// Size returns the number of indexed chunks.
func (r *Repo) Size(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.cfg.IndexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.cfg.IndexName, err)
	}
	return n, nil
}

// All pages through the whole index.
func (r *Repo) All(ctx context.Context) ([]catalog.Chunk, error) {
	var out []catalog.Chunk
	for offset := 0; ; offset += listPageSize {
		sr, err := r.store.SearchList(ctx, r.cfg.IndexName, "*", offset, listPageSize,
			[]string{FieldText, FieldMetadata})
		if err != nil {
			return nil, fmt.Errorf("list %s at %d: %w", r.cfg.IndexName, offset, err)
		}
		if sr == nil || len(sr.Entries) == 0 {
			break
		}
		for i := range sr.Entries {
			out = append(out, r.toChunk(&sr.Entries[i]))
		}
		if offset+len(sr.Entries) >= sr.Total || len(sr.Entries) < listPageSize {
			break
		}
	}
	return out, nil
}

// EnsureIndex creates the vector index unless it already exists.
// It reports whether a new index was created.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return false, fmt.Errorf("probe index: %w", err)
	}
	if exists {
		return false, nil
	}

	b := db.NewIndex(r.cfg.IndexName).Prefix(r.cfg.KeyPrefix)
	if r.cfg.Algorithm == db.VectorFlat {
		b = b.Flat(FieldVector, r.cfg.Dimensions, r.cfg.Distance)
	} else {
		b = b.HNSW(FieldVector, r.cfg.Dimensions, r.cfg.Distance, r.cfg.HNSW)
	}
	def, err := b.Build()
	if err != nil {
		return false, fmt.Errorf("index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index: %w", err)
	}
	return true, nil
}

// Upsert writes chunks with their embeddings. vectors[i] belongs to chunks[i].
func (r *Repo) Upsert(ctx context.Context, chunks []catalog.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("upsert: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	items := make([]db.HashSetItem, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if c.ID == "" {
			return fmt.Errorf("upsert: chunk %d has no id", i)
		}
		if r.cfg.Dimensions > 0 && len(vectors[i]) != r.cfg.Dimensions {
			return fmt.Errorf("upsert %s: vector has %d dims, index expects %d",
				c.ID, len(vectors[i]), r.cfg.Dimensions)
		}
		meta := c.Metadata
		if meta == nil {
			meta = catalog.Metadata{}
		}
		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("upsert %s: encode metadata: %w", c.ID, err)
		}
		items = append(items, db.HashSetItem{
			Key: r.key(c.ID),
			Fields: map[string]string{
				FieldText:     c.Text,
				FieldMetadata: string(raw),
			},
			Vectors: map[string][]float32{FieldVector: vectors[i]},
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d chunks: %w", len(items), err)
	}
	return nil
}

// Stored reports, per id, whether the chunk is already in the catalog.
func (r *Repo) Stored(ctx context.Context, ids []string) ([]bool, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	found, err := r.store.ExistsMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("probe %d chunks: %w", len(ids), err)
	}
	return found, nil
}

// Drop removes the index together with every stored chunk. A missing index is not an error.
func (r *Repo) Drop(ctx context.Context) error {
	err := r.store.DropIndex(ctx, r.cfg.IndexName, true)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index: %w", err)
	}
	return nil
}

func (r *Repo) key(id string) string {
	return r.cfg.KeyPrefix + id
}

func (r *Repo) toChunk(e *db.SearchEntry) catalog.Chunk {
	meta, err := catalog.ParseMetadata(e.Fields[FieldMetadata])
	if err != nil {
		r.logger.Warn("Malformed chunk metadata", zap.String("key", e.Key), zap.Error(err))
		meta = catalog.Metadata{}
	}
	return catalog.Chunk{
		ID:       strings.TrimPrefix(e.Key, r.cfg.KeyPrefix),
		Text:     e.Fields[FieldText],
		Metadata: meta,
	}
}
