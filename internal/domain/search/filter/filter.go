package filter

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

// ErrInvalidFilter is returned when a known filter key carries a malformed value.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter keys with bespoke semantics.
const (
	KeyTourType    = "tour_type"
	KeyPriceRange  = "price_range"
	KeyTourName    = "tour_name"
	KeyProductName = "product_name"
	KeyInStockOnly = "in_stock_only"
	KeyMinRating   = "min_rating"
	KeyCategories  = "categories"
	KeyBrands      = "brands"
	KeyVariants    = "variants"
	KeyAttributes  = "attributes"
)

// Predicate is a single named constraint over chunk metadata.
type Predicate interface {
	Key() string
	Match(m catalog.Metadata) bool
}

// Filter is an ordered, conjunctive set of predicates. At most one predicate per key.
type Filter struct {
	preds []Predicate
}

// New builds a filter; a later predicate replaces an earlier one with the same key.
func New(preds ...Predicate) Filter {
	var f Filter
	for _, p := range preds {
		f = f.With(p)
	}
	return f
}

// With returns a copy of f with p added, replacing any predicate with the same key in place.
func (f Filter) With(p Predicate) Filter {
	out := make([]Predicate, 0, len(f.preds)+1)
	replaced := false
	for _, existing := range f.preds {
		if existing.Key() == p.Key() {
			out = append(out, p)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, p)
	}
	return Filter{preds: out}
}

// Predicates returns the predicates in evaluation order.
func (f Filter) Predicates() []Predicate { return f.preds }

// Len returns the number of predicates.
func (f Filter) Len() int { return len(f.preds) }

// IsEmpty reports whether the filter has no predicates.
func (f Filter) IsEmpty() bool { return len(f.preds) == 0 }

// Get returns the predicate registered under key.
func (f Filter) Get(key string) (Predicate, bool) {
	for _, p := range f.preds {
		if p.Key() == key {
			return p, true
		}
	}
	return nil, false
}

// Match evaluates predicates in order and stops at the first failure.
func (f Filter) Match(m catalog.Metadata) bool {
	for _, p := range f.preds {
		if !p.Match(m) {
			return false
		}
	}
	return true
}

// Parse builds a filter from a decoded JSON object. Keys are processed in sorted
// order so the same input always yields the same evaluation order.
func Parse(raw map[string]any) (Filter, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]Predicate, 0, len(keys))
	for _, k := range keys {
		p, err := parsePredicate(k, raw[k])
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %s: %w", ErrInvalidFilter, k, err)
		}
		preds = append(preds, p)
	}
	return Filter{preds: preds}, nil
}

func parsePredicate(key string, v any) (Predicate, error) {
	switch key {
	case KeyTourType:
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("must be a string")
		}
		t, err := NewTourType(TourType(s))
		if err != nil {
			return nil, err
		}
		return t, nil
	case KeyPriceRange:
		return parsePriceRange(v)
	case KeyTourName, KeyProductName:
		names, ok := stringList(v)
		if !ok {
			return nil, errors.New("must be a string or a list of strings")
		}
		return NameContains{key: key, names: names}, nil
	case KeyInStockOnly:
		b, ok := v.(bool)
		if !ok {
			return nil, errors.New("must be a boolean")
		}
		return InStockOnly(b), nil
	case KeyMinRating:
		n, ok := number(v)
		if !ok {
			return nil, errors.New("must be a number")
		}
		return MinRating(n), nil
	case KeyCategories:
		vals, ok := stringList(v)
		if !ok {
			return nil, errors.New("must be a list of strings")
		}
		return Categories(vals), nil
	case KeyBrands:
		vals, ok := stringList(v)
		if !ok {
			return nil, errors.New("must be a list of strings")
		}
		return Brands(vals), nil
	case KeyAttributes:
		vals, ok := stringList(v)
		if !ok {
			return nil, errors.New("must be a string or a list of strings")
		}
		return Attributes(vals), nil
	case KeyVariants:
		return parseVariants(v)
	default:
		return Equals{key: key, value: v}, nil
	}
}

func parsePriceRange(v any) (Predicate, error) {
	list, ok := v.([]any)
	if !ok || len(list) != 2 {
		return nil, errors.New("must be a [min, max] pair")
	}
	var bounds [2]*float64
	for i, e := range list {
		if e == nil {
			continue
		}
		n, ok := number(e)
		if !ok {
			return nil, errors.New("bounds must be numbers or null")
		}
		bounds[i] = &n
	}
	if bounds[0] != nil && bounds[1] != nil && *bounds[0] > *bounds[1] {
		return nil, errors.New("min must not exceed max")
	}
	return PriceRange{Min: bounds[0], Max: bounds[1]}, nil
}

func parseVariants(v any) (Predicate, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, errors.New("must be a list of objects")
	}
	out := make(Variants, 0, len(list))
	for _, e := range list {
		obj, ok := e.(map[string]any)
		if !ok {
			return nil, errors.New("must be a list of objects")
		}
		name, _ := obj["attributeName"].(string)
		value, _ := obj["attributeValue"].(string)
		out = append(out, catalog.Variant{AttributeName: name, AttributeValue: value})
	}
	return out, nil
}
