package filter

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

// TourType selects domestic or international tours.
type TourType string

// Tour types.
const (
	Domestic      TourType = "domestic"
	International TourType = "international"
)

// NewTourType validates t.
func NewTourType(t TourType) (TourType, error) {
	switch t {
	case Domestic, International:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tour type %q", t)
	}
}

// Key implements Predicate.
func (t TourType) Key() string { return KeyTourType }

// Match requires is_domestic to be exactly true (domestic) or exactly false (international).
// A missing or non-boolean flag fails both.
func (t TourType) Match(m catalog.Metadata) bool {
	flag, ok := m.Bool(catalog.FieldIsDomestic)
	if !ok {
		return false
	}
	switch t {
	case Domestic:
		return flag
	case International:
		return !flag
	}
	return false
}

// PriceRange requests an overlapping per-person price interval. Nil bounds are open.
type PriceRange struct {
	Min *float64
	Max *float64
}

// Key implements Predicate.
func (p PriceRange) Key() string { return KeyPriceRange }

// Match passes when the candidate interval overlaps the requested one.
// Candidates without a complete price range pass.
func (p PriceRange) Match(m catalog.Metadata) bool {
	lo, hi, ok := m.PriceRange()
	if !ok {
		return true
	}
	if p.Min != nil && *p.Min > hi {
		return false
	}
	if p.Max != nil && *p.Max < lo {
		return false
	}
	return true
}

// NameContains matches when the named field contains any of the names, case-insensitively.
type NameContains struct {
	key   string
	names []string
}

// NewNameContains builds a name predicate over field key (tour_name or product_name).
func NewNameContains(key string, names ...string) NameContains {
	return NameContains{key: key, names: names}
}

// Key implements Predicate.
func (n NameContains) Key() string { return n.key }

// Names returns the requested names.
func (n NameContains) Names() []string { return n.names }

// Match implements Predicate.
func (n NameContains) Match(m catalog.Metadata) bool {
	have := strings.ToLower(m.String(n.key))
	for _, name := range n.names {
		if strings.Contains(have, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// InStockOnly, when true, requires in_stock to be true.
type InStockOnly bool

// Key implements Predicate.
func (InStockOnly) Key() string { return KeyInStockOnly }

// Match implements Predicate.
func (s InStockOnly) Match(m catalog.Metadata) bool {
	return !bool(s) || m.InStock()
}

// MinRating requires rating_value to be present and at least the threshold.
type MinRating float64

// Key implements Predicate.
func (MinRating) Key() string { return KeyMinRating }

// Match implements Predicate.
func (r MinRating) Match(m catalog.Metadata) bool {
	rating, ok := m.Float(catalog.FieldRating)
	return ok && rating >= float64(r)
}

// Categories requires at least one requested category in category_names.
type Categories []string

// Key implements Predicate.
func (Categories) Key() string { return KeyCategories }

// Match implements Predicate.
func (c Categories) Match(m catalog.Metadata) bool {
	return anyIn(c, m.Strings(catalog.FieldCategories))
}

// Brands requires brand_name to be one of the requested brands.
type Brands []string

// Key implements Predicate.
func (Brands) Key() string { return KeyBrands }

// Match implements Predicate.
func (b Brands) Match(m catalog.Metadata) bool {
	brand, ok := m[catalog.FieldBrand].(string)
	return ok && slices.Contains(b, brand)
}

// Attributes requires at least one requested name in attribute_names.
type Attributes []string

// Key implements Predicate.
func (Attributes) Key() string { return KeyAttributes }

// Match implements Predicate.
func (a Attributes) Match(m catalog.Metadata) bool {
	return anyIn(a, m.Strings(catalog.FieldAttributes))
}

// Variants requires any requested attribute name/value pair to exist in variants,
// compared case-insensitively.
type Variants []catalog.Variant

// Key implements Predicate.
func (Variants) Key() string { return KeyVariants }

// Match implements Predicate.
func (v Variants) Match(m catalog.Metadata) bool {
	have := m.Variants()
	for _, want := range v {
		for _, h := range have {
			if strings.EqualFold(h.AttributeName, want.AttributeName) &&
				strings.EqualFold(h.AttributeValue, want.AttributeValue) {
				return true
			}
		}
	}
	return false
}

// Equals is the fallback for unknown keys: exact equality when the field exists.
// Chunks that lack the field pass.
type Equals struct {
	key   string
	value any
}

// NewEquals builds an equality predicate.
func NewEquals(key string, value any) Equals {
	return Equals{key: key, value: value}
}

// Key implements Predicate.
func (e Equals) Key() string { return e.key }

// Match implements Predicate.
func (e Equals) Match(m catalog.Metadata) bool {
	have, ok := m[e.key]
	if !ok {
		return true
	}
	if a, okA := number(have); okA {
		if b, okB := number(e.value); okB {
			return a == b
		}
	}
	return reflect.DeepEqual(have, e.value)
}

func anyIn(want, have []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// stringList accepts a single string or a list of strings.
func stringList(v any) ([]string, bool) {
	switch s := v.(type) {
	case string:
		return []string{s}, true
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}
