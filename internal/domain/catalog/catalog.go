package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Well-known metadata fields written by the catalog export.
const (
	FieldSourceEndpoint = "source_endpoint"
	FieldIsDomestic     = "is_domestic"
	FieldMinPrice       = "min_price"
	FieldMaxPrice       = "max_price"
	FieldInStock        = "in_stock"
	FieldRating         = "rating_value"
	FieldCategories     = "category_names"
	FieldBrand          = "brand_name"
	FieldVariants       = "variants"
	FieldAttributes     = "attribute_names"
	FieldTourID         = "tour_id"
	FieldTourName       = "tour_name"
	FieldProductID      = "product_id"
	FieldProductName    = "product_name"
	FieldSlug           = "slug"
	FieldDestination    = "destination"
	FieldImageURL       = "image_url"
	FieldDuration       = "duration"
	FieldAvailableSlots = "available_slots"
	FieldStockQuantity  = "stock_quantity"
)

// Chunk is a retrievable unit of catalog text with its structured metadata.
type Chunk struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Hit is a raw nearest-neighbor match.
type Hit struct {
	Chunk    Chunk
	Distance float64
}

// Variant is a single attribute name/value pair attached to a catalog item.
type Variant struct {
	AttributeName  string `json:"attributeName"`
	AttributeValue string `json:"attributeValue"`
}

// Metadata holds decoded JSON metadata. Values keep their JSON shapes
// (bool, float64, string, []any, map[string]any).
type Metadata map[string]any

// Bool returns the value only when it is a real boolean.
func (m Metadata) Bool(key string) (bool, bool) {
	b, ok := m[key].(bool)
	return b, ok
}

// Float returns numeric values; strings are not coerced.
func (m Metadata) Float(key string) (float64, bool) {
	return toFloat(m[key])
}

// String returns a string value.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// ID returns a string or numeric identifier as text.
func (m Metadata) ID(key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return formatID(v)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	}
	return ""
}

// Strings returns a list of strings, skipping non-string elements.
func (m Metadata) Strings(key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Len returns the element count of a list value, 0 otherwise.
func (m Metadata) Len(key string) int {
	switch v := m[key].(type) {
	case []string:
		return len(v)
	case []any:
		return len(v)
	}
	return 0
}

// Variants decodes the variants list.
func (m Metadata) Variants() []Variant {
	switch v := m[FieldVariants].(type) {
	case []Variant:
		return v
	case []any:
		out := make([]Variant, 0, len(v))
		for _, e := range v {
			obj, ok := e.(map[string]any)
			if !ok {
				continue
			}
			name, _ := obj["attributeName"].(string)
			value, _ := obj["attributeValue"].(string)
			out = append(out, Variant{AttributeName: name, AttributeValue: value})
		}
		return out
	}
	return nil
}

// PriceRange returns min and max price when both are present.
func (m Metadata) PriceRange() (minPrice, maxPrice float64, ok bool) {
	lo, okLo := m.Float(FieldMinPrice)
	hi, okHi := m.Float(FieldMaxPrice)
	if !okLo || !okHi {
		return 0, 0, false
	}
	return lo, hi, true
}

// InStock reports in_stock == true.
func (m Metadata) InStock() bool {
	b, _ := m.Bool(FieldInStock)
	return b
}

// FromCatalog reports whether the chunk originates from the tours API of backendURL.
// Chunks without a source endpoint are accepted.
func (m Metadata) FromCatalog(backendURL string) bool {
	src := m.String(FieldSourceEndpoint)
	if src == "" {
		return true
	}
	expected := strings.ToLower(strings.TrimRight(backendURL, "/") + "/api/tours")
	return strings.Contains(strings.ToLower(src), expected)
}

// ParseMetadata decodes a JSON object into Metadata.
func ParseMetadata(raw string) (Metadata, error) {
	if raw == "" {
		return Metadata{}, nil
	}
	var m Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = Metadata{}
	}
	return m, nil
}

func toFloat(v any) (float64, bool) {
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

func formatID(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
