package search

import (
	"context"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

type mockIndex struct {
	hits    []catalog.Hit
	size    int
	sizeErr error
	knnErr  error
	lastK   int
	calls   int
}

func (m *mockIndex) SearchKNN(_ context.Context, _ []float32, k int) ([]catalog.Hit, error) {
	m.calls++
	m.lastK = k
	if m.knnErr != nil {
		return nil, m.knnErr
	}
	if k < len(m.hits) {
		return m.hits[:k], nil
	}
	return m.hits, nil
}

func (m *mockIndex) Size(_ context.Context) (int, error) {
	if m.sizeErr != nil {
		return 0, m.sizeErr
	}
	if m.size > 0 {
		return m.size, nil
	}
	return len(m.hits), nil
}

type mockEmbedder struct {
	tokens int
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: m.tokens}, nil
}

const testBackend = "http://localhost:8080"

func hit(id string, distance float64, meta catalog.Metadata) catalog.Hit {
	if meta == nil {
		meta = catalog.Metadata{}
	}
	return catalog.Hit{Chunk: catalog.Chunk{ID: id, Text: "text " + id, Metadata: meta}, Distance: distance}
}
