package intent

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/tourguide/internal/domain"
)

// Intent is the closed set of query handling strategies.
type Intent string

// Intent constants.
const (
	TourQuery        Intent = "tour_query"
	GeneralQuery     Intent = "general_query"
	DestinationQuery Intent = "destination_query"
	BookingIntent    Intent = "booking_intent"
)

// All lists every intent in label-matching priority order.
var All = []Intent{TourQuery, GeneralQuery, DestinationQuery, BookingIntent}

// IsValid checks if the intent is one of the supported values.
func (i Intent) IsValid() bool {
	return i == TourQuery || i == GeneralQuery || i == DestinationQuery || i == BookingIntent
}

// Parse extracts an intent from a classifier label. The label is matched by
// containment in priority order, so "tour_query." and "Intent: tour_query" both parse.
func Parse(label string) (Intent, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized != "" {
		for _, i := range All {
			if strings.Contains(normalized, string(i)) {
				return i, nil
			}
		}
	}
	return "", fmt.Errorf("%w: unrecognized label %q", domain.ErrClassificationFailed, label)
}
