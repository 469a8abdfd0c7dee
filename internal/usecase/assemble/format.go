package assemble

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/tourguide/internal/domain/catalog"
)

// formatVND renders an amount rounded to whole dong with comma thousands separators.
func formatVND(amount float64) string {
	n := int64(math.Round(amount))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + b.String()
}

// priceLabel renders "X VND" or "X - Y VND".
func priceLabel(lo, hi float64) string {
	if lo == hi {
		return formatVND(lo) + " VND"
	}
	return formatVND(lo) + " - " + formatVND(hi) + " VND"
}

// display renders a scalar metadata value the way it was written in the catalog.
func display(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// resolveImage maps a stored image reference to an absolute URL.
func resolveImage(backendURL, img string) string {
	switch {
	case img == "":
		return ""
	case strings.HasPrefix(img, "/uploads/"):
		return backendURL + img
	case strings.HasPrefix(img, "http"):
		return img
	default:
		return backendURL + "/uploads/" + img
	}
}

// detailURL links to the tour page by slug, falling back to tour_id.
func detailURL(frontendURL string, m catalog.Metadata) string {
	if slug := m.String(catalog.FieldSlug); slug != "" {
		return frontendURL + "/tours/" + slug
	}
	if id := m.ID(catalog.FieldTourID); id != "" {
		return frontendURL + "/tours/" + id
	}
	return ""
}
