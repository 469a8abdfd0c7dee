package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
	"github.com/kailas-cloud/tourguide/internal/domain/search/filter"
)

func TestSearch_OverFetchBoundedByCorpus(t *testing.T) {
	idx := &mockIndex{hits: []catalog.Hit{hit("a", 0.1, nil), hit("b", 0.2, nil)}, size: 12}
	svc := New(idx, &mockEmbedder{}, testBackend, nil)

	if _, err := svc.Search(context.Background(), "q", 2, filter.Filter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.lastK != 10 {
		t.Errorf("k = %d, want top_k*5 = 10", idx.lastK)
	}

	if _, err := svc.Search(context.Background(), "q", 5, filter.Filter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.lastK != 12 {
		t.Errorf("k = %d, want corpus size 12", idx.lastK)
	}
}

func TestSearch_DomesticScenario(t *testing.T) {
	idx := &mockIndex{hits: []catalog.Hit{
		hit("intl", 0.1, catalog.Metadata{"is_domestic": false, "min_price": 200.0, "max_price": 200.0}),
		hit("dom", 0.2, catalog.Metadata{"is_domestic": true, "min_price": 100.0, "max_price": 100.0}),
	}}
	svc := New(idx, &mockEmbedder{}, testBackend, nil)

	got, err := svc.Search(context.Background(), "tour trong nước", 5, filter.New(filter.Domestic))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].Text() != "text dom" {
		t.Errorf("expected the domestic chunk, got %q", got[0].Text())
	}
}

func TestSearch_SourceEndpoint(t *testing.T) {
	idx := &mockIndex{hits: []catalog.Hit{
		hit("foreign", 0.1, catalog.Metadata{"source_endpoint": "http://other/api/products"}),
		hit("ours", 0.2, catalog.Metadata{"source_endpoint": "HTTP://LOCALHOST:8080/api/tours/3"}),
		hit("unknown", 0.3, nil),
	}}
	svc := New(idx, &mockEmbedder{}, testBackend, nil)

	got, err := svc.Search(context.Background(), "q", 5, filter.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	for _, r := range got {
		if r.Text() == "text foreign" {
			t.Error("chunk from another origin must be rejected")
		}
	}
}

func TestSearch_SortedAndBounded(t *testing.T) {
	idx := &mockIndex{hits: []catalog.Hit{
		hit("near", 0.1, nil),
		hit("boosted", 0.3, catalog.Metadata{"in_stock": true, "rating_value": 5.0}),
		hit("mid", 0.5, nil),
		hit("far", 2.0, nil),
	}}
	svc := New(idx, &mockEmbedder{}, testBackend, nil)

	got, err := svc.Search(context.Background(), "q", 3, filter.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if got[0].Text() != "text boosted" {
		t.Errorf("boosted chunk must rank first, got %q", got[0].Text())
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].RelevanceScore() < got[i].RelevanceScore() {
			t.Errorf("results not sorted at %d", i)
		}
	}
	for _, r := range got {
		if r.Text() == "text far" {
			t.Error("accumulation must stop at top_k")
		}
	}
}

func TestSearch_StableTies(t *testing.T) {
	idx := &mockIndex{hits: []catalog.Hit{
		hit("first", 0.5, nil),
		hit("second", 0.5, nil),
		hit("third", 0.5, nil),
	}}
	svc := New(idx, &mockEmbedder{}, testBackend, nil)

	got, _ := svc.Search(context.Background(), "q", 3, filter.Filter{})
	want := []string{"text first", "text second", "text third"}
	for i, r := range got {
		if r.Text() != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, r.Text(), want[i])
		}
	}
}

func TestSearch_AllResultsPassFilter(t *testing.T) {
	hits := make([]catalog.Hit, 0, 30)
	for i := 0; i < 30; i++ {
		meta := catalog.Metadata{"rating_value": float64(i % 6)}
		if i%2 == 0 {
			meta["is_domestic"] = true
		}
		hits = append(hits, hit(string(rune('a'+i)), float64(i)/10, meta))
	}
	idx := &mockIndex{hits: hits}
	svc := New(idx, &mockEmbedder{}, testBackend, nil)
	f := filter.New(filter.Domestic, filter.MinRating(3))

	got, err := svc.Search(context.Background(), "q", 4, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > 4 {
		t.Fatalf("len = %d exceeds top_k", len(got))
	}
	for _, r := range got {
		if !f.Match(r.Metadata()) {
			t.Errorf("result %v does not satisfy the filter", r.Metadata())
		}
	}
}

func TestSearch_Unavailable(t *testing.T) {
	tests := []struct {
		name  string
		idx   *mockIndex
		embed *mockEmbedder
	}{
		{"size error", &mockIndex{sizeErr: errors.New("conn refused")}, &mockEmbedder{}},
		{"knn error", &mockIndex{hits: []catalog.Hit{hit("a", 0, nil)}, knnErr: errors.New("timeout")}, &mockEmbedder{}},
		{"embed error", &mockIndex{hits: []catalog.Hit{hit("a", 0, nil)}}, &mockEmbedder{err: domain.ErrEmbeddingProviderError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(tt.idx, tt.embed, testBackend, nil)
			got, err := svc.Search(context.Background(), "q", 3, filter.Filter{})
			if !errors.Is(err, domain.ErrRetrievalUnavailable) {
				t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no results, got %d", len(got))
			}
		})
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := &mockIndex{}
	svc := New(idx, &mockEmbedder{}, testBackend, nil)

	got, err := svc.Search(context.Background(), "q", 3, filter.Filter{})
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
	if idx.calls != 0 {
		t.Error("empty index must not be queried")
	}
}

func TestSearch_RecordsEmbeddingUsage(t *testing.T) {
	idx := &mockIndex{hits: []catalog.Hit{hit("a", 0, nil)}}
	svc := New(idx, &mockEmbedder{tokens: 9}, testBackend, nil)

	ctx, usage := domain.NewContextWithUsage(context.Background())
	if _, err := svc.Search(ctx, "q", 1, filter.Filter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := usage.Snapshot(); !got.Used() || got.Tokens != 9 {
		t.Errorf("usage = %+v", got)
	}
}

func TestSearchGeneral(t *testing.T) {
	idx := &mockIndex{hits: []catalog.Hit{
		hit("a", 1, catalog.Metadata{"in_stock": true, "source_endpoint": "http://other"}),
		hit("b", 3, nil),
		hit("c", 4, nil),
	}}
	svc := New(idx, &mockEmbedder{}, testBackend, nil)

	got, err := svc.SearchGeneral(context.Background(), "chính sách hủy tour", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || idx.lastK != 2 {
		t.Fatalf("len = %d, k = %d", len(got), idx.lastK)
	}
	if got[0].RelevanceScore() != 0.5 || got[1].RelevanceScore() != 0.25 {
		t.Errorf("general search must not boost: %v %v", got[0].RelevanceScore(), got[1].RelevanceScore())
	}
}
