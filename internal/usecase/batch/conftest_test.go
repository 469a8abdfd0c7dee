package batch

import (
	"context"
	"sync"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

type mockIndex struct {
	mu        sync.Mutex
	created   bool
	ensureErr error
	hasErr    error
	upsertErr func(chunks []catalog.Chunk) error
	stored    map[string][]float32
	calls     int
	probes    int
}

func newMockIndex() *mockIndex {
	return &mockIndex{stored: map[string][]float32{}}
}

func (m *mockIndex) EnsureIndex(_ context.Context) (bool, error) {
	return m.created, m.ensureErr
}

func (m *mockIndex) Upsert(_ context.Context, chunks []catalog.Chunk, vectors [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.upsertErr != nil {
		if err := m.upsertErr(chunks); err != nil {
			return err
		}
	}
	for i, c := range chunks {
		m.stored[c.ID] = vectors[i]
	}
	return nil
}

func (m *mockIndex) Stored(_ context.Context, ids []string) ([]bool, error) {
	if m.hasErr != nil {
		return nil, m.hasErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes++
	out := make([]bool, len(ids))
	for i, id := range ids {
		_, out[i] = m.stored[id]
	}
	return out, nil
}

// mockBatchEmbedder returns one-element vectors holding the text length.
type mockBatchEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	failOn  string
	err     error
}

func (m *mockBatchEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := m.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0], TotalTokens: res.TotalTokens}, nil
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	m.batches = append(m.batches, texts)
	m.mu.Unlock()

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		if m.failOn != "" && t == m.failOn {
			return domain.BatchEmbeddingResult{}, m.err
		}
		out.Embeddings[i] = []float32{float32(len(t))}
		out.TotalTokens += 2
	}
	return out, nil
}
