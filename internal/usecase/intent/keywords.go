package intent

import (
	"strings"

	"github.com/kailas-cloud/tourguide/internal/domain/search/filter"
)

var (
	domesticKeywords      = []string{"trong nước", "việt nam", "nội địa", "domestic"}
	internationalKeywords = []string{"nước ngoài", "quốc tế", "international", "châu á", "châu âu", "mỹ"}
)

// DetectTourType scans the raw query for literal tour type keywords.
// Domestic keywords are checked first.
func DetectTourType(query string) (filter.TourType, bool) {
	q := strings.ToLower(query)
	if containsAny(q, domesticKeywords) {
		return filter.Domestic, true
	}
	if containsAny(q, internationalKeywords) {
		return filter.International, true
	}
	return "", false
}

// ApplyKeywordOverride sets tour_type from query keywords. A literal keyword
// replaces whatever tour_type the extractor produced.
func ApplyKeywordOverride(f filter.Filter, query string) filter.Filter {
	if t, ok := DetectTourType(query); ok {
		return f.With(t)
	}
	return f
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
