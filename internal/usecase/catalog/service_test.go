package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

type mockSource struct {
	chunks []catalog.Chunk
	err    error
	calls  int
}

func (m *mockSource) All(context.Context) ([]catalog.Chunk, error) {
	m.calls++
	return m.chunks, m.err
}

func chunk(id, dest string) catalog.Chunk {
	return catalog.Chunk{ID: id, Metadata: catalog.Metadata{catalog.FieldDestination: dest}}
}

func TestStats_ComputesAndCaches(t *testing.T) {
	src := &mockSource{chunks: []catalog.Chunk{chunk("1", "Hạ Long"), chunk("2", "Đà Lạt"), chunk("3", "Hạ Long")}}
	svc := New(src, DefaultStatsTTL, nil)

	st, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalChunks != 3 || st.TotalDestinations != 2 {
		t.Errorf("stats = %+v", st)
	}

	if _, err := svc.Stats(context.Background()); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("source calls = %d, want 1 (second call cached)", src.calls)
	}

	svc.Invalidate()
	if _, err := svc.Stats(context.Background()); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if src.calls != 2 {
		t.Errorf("source calls after invalidate = %d, want 2", src.calls)
	}
}

func TestStats_ZeroTTLRecomputes(t *testing.T) {
	src := &mockSource{}
	svc := New(src, 0, nil)
	for range 3 {
		_, _ = svc.Stats(context.Background())
	}
	if src.calls != 3 {
		t.Errorf("source calls = %d, want 3", src.calls)
	}
}

func TestStats_SourceError(t *testing.T) {
	src := &mockSource{err: errors.New("connection refused")}
	svc := New(src, DefaultStatsTTL, nil)

	_, err := svc.Stats(context.Background())
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}

	src.err = nil
	if _, err := svc.Stats(context.Background()); err != nil {
		t.Fatalf("failures must not be cached: %v", err)
	}
}
