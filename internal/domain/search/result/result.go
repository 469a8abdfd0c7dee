package result

import "github.com/kailas-cloud/tourguide/internal/domain/catalog"

// Score boosts applied on top of the distance-derived base score.
const (
	InStockBoost       = 1.2
	HighRatingBoost    = 1.1
	RichAttributeBoost = 1.05

	HighRatingThreshold    = 4.0
	RichAttributeThreshold = 3
)

// Ranked is a filtered nearest-neighbor hit with its composite relevance score.
type Ranked struct {
	text      string
	metadata  catalog.Metadata
	distance  float64
	relevance float64
}

// New creates a ranked result. The relevance score is supplied by the caller,
// usually from Score or BaseScore.
func New(text string, metadata catalog.Metadata, distance, relevance float64) Ranked {
	return Ranked{text: text, metadata: metadata, distance: distance, relevance: relevance}
}

// Text returns the chunk text.
func (r Ranked) Text() string { return r.text }

// Metadata returns the chunk metadata.
func (r Ranked) Metadata() catalog.Metadata { return r.metadata }

// Distance returns the raw index distance.
func (r Ranked) Distance() float64 { return r.distance }

// RelevanceScore returns the composite score.
func (r Ranked) RelevanceScore() float64 { return r.relevance }

// BaseScore maps distance to (0, 1]; smaller distance scores higher.
func BaseScore(distance float64) float64 {
	return 1 / (1 + distance)
}

// Score applies metadata boosts to the base score.
func Score(distance float64, m catalog.Metadata) float64 {
	score := BaseScore(distance)
	if m.InStock() {
		score *= InStockBoost
	}
	if rating, ok := m.Float(catalog.FieldRating); ok && rating >= HighRatingThreshold {
		score *= HighRatingBoost
	}
	if m.Len(catalog.FieldAttributes) > RichAttributeThreshold {
		score *= RichAttributeBoost
	}
	return score
}
