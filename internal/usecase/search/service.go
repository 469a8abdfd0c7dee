package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/domain/search/filter"
	"github.com/kailas-cloud/tourguide/internal/domain/search/result"
)

// OverFetchFactor multiplies top_k when querying the index to leave room for filtering.
const OverFetchFactor = 5

// Service runs catalog similarity search with metadata filtering and re-ranking.
type Service struct {
	index      Index
	embed      Embedder
	backendURL string
	logger     *zap.Logger
}

// New creates a search service. backendURL identifies the catalog origin of accepted chunks.
func New(index Index, embed Embedder, backendURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, embed: embed, backendURL: backendURL, logger: logger}
}

// Search returns at most topK catalog chunks that pass f, ordered by descending
// relevance score. Index or embedder failures wrap domain.ErrRetrievalUnavailable.
func (s *Service) Search(
	ctx context.Context, query string, topK int, f filter.Filter,
) ([]result.Ranked, error) {
	if topK <= 0 {
		return nil, nil
	}

	size, err := s.index.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: index size: %w", domain.ErrRetrievalUnavailable, err)
	}
	n := min(topK*OverFetchFactor, size)
	if n == 0 {
		return nil, nil
	}

	vec, err := s.vectorize(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.SearchKNN(ctx, vec, n)
	if err != nil {
		return nil, fmt.Errorf("%w: search knn: %w", domain.ErrRetrievalUnavailable, err)
	}

	out := make([]result.Ranked, 0, topK)
	for _, h := range hits {
		meta := h.Chunk.Metadata
		if !meta.FromCatalog(s.backendURL) {
			continue
		}
		if !f.Match(meta) {
			continue
		}
		out = append(out, result.New(h.Chunk.Text, meta, h.Distance, result.Score(h.Distance, meta)))
		if len(out) >= topK {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore() > out[j].RelevanceScore()
	})

	s.logger.Debug("catalog search",
		zap.Int("candidates", len(hits)),
		zap.Int("accepted", len(out)),
		zap.Int("filters", f.Len()),
	)
	return out, nil
}

// SearchGeneral returns the topK nearest chunks without filtering or boosts.
func (s *Service) SearchGeneral(ctx context.Context, query string, topK int) ([]result.Ranked, error) {
	if topK <= 0 {
		return nil, nil
	}

	size, err := s.index.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: index size: %w", domain.ErrRetrievalUnavailable, err)
	}
	n := min(topK, size)
	if n == 0 {
		return nil, nil
	}

	vec, err := s.vectorize(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.SearchKNN(ctx, vec, n)
	if err != nil {
		return nil, fmt.Errorf("%w: search knn: %w", domain.ErrRetrievalUnavailable, err)
	}

	out := make([]result.Ranked, 0, len(hits))
	for _, h := range hits {
		out = append(out, result.New(h.Chunk.Text, h.Chunk.Metadata, h.Distance, result.BaseScore(h.Distance)))
	}
	return out, nil
}

func (s *Service) vectorize(ctx context.Context, query string) ([]float32, error) {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: vectorize query: %w", domain.ErrRetrievalUnavailable, err)
	}
	domain.UsageFromContext(ctx).Record(emb)
	return emb.Embedding, nil
}
