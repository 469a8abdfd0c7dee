package assemble

import (
	"context"
	"errors"

	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
	"github.com/kailas-cloud/tourguide/internal/domain/search/filter"
	"github.com/kailas-cloud/tourguide/internal/domain/search/result"
)

var errBackend = errors.New("index down")

type searchCall struct {
	query    string
	topK     int
	filtered bool
}

// mockSearcher returns filtered or unfiltered results depending on the filter passed.
type mockSearcher struct {
	filtered    []result.Ranked
	unfiltered  []result.Ranked
	general     []result.Ranked
	filteredErr error
	err         error
	calls       []searchCall
}

func (m *mockSearcher) Search(_ context.Context, query string, topK int, f filter.Filter) ([]result.Ranked, error) {
	m.calls = append(m.calls, searchCall{query: query, topK: topK, filtered: !f.IsEmpty()})
	if !f.IsEmpty() {
		if m.filteredErr != nil {
			return nil, m.filteredErr
		}
		return limit(m.filtered, topK), nil
	}
	if m.err != nil {
		return nil, m.err
	}
	return limit(m.unfiltered, topK), nil
}

func (m *mockSearcher) SearchGeneral(_ context.Context, query string, topK int) ([]result.Ranked, error) {
	m.calls = append(m.calls, searchCall{query: query, topK: topK})
	if m.err != nil {
		return nil, m.err
	}
	return limit(m.general, topK), nil
}

func limit(rs []result.Ranked, k int) []result.Ranked {
	if len(rs) > k {
		return rs[:k]
	}
	return rs
}

type mockStats struct {
	stats catalog.Stats
	err   error
}

func (m *mockStats) Stats(context.Context) (catalog.Stats, error) {
	return m.stats, m.err
}

func ranked(text string, meta catalog.Metadata, score float64) result.Ranked {
	return result.New(text, meta, 0, score)
}

func tourMeta(id float64, name, slug string) catalog.Metadata {
	return catalog.Metadata{
		catalog.FieldTourID:         id,
		catalog.FieldTourName:       name,
		catalog.FieldSlug:           slug,
		catalog.FieldDestination:    "Hạ Long",
		catalog.FieldMinPrice:       100.0,
		catalog.FieldMaxPrice:       100.0,
		catalog.FieldAvailableSlots: 5.0,
		catalog.FieldImageURL:       "/uploads/halong.jpg",
		catalog.FieldDuration:       "3N2Đ",
		catalog.FieldRating:         4.5,
	}
}

var testCfg = Config{BackendURL: "http://localhost:8080/", FrontendURL: "http://localhost:3000"}
