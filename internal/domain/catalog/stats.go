package catalog

// PriceRange is a [min, max] per-person price pair.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Stats aggregates catalog-wide metadata.
type Stats struct {
	TotalChunks       int            `json:"total_chunks"`
	Destinations      map[string]int `json:"destinations"`
	DestinationList   []string       `json:"destination_list"`
	TotalDestinations int            `json:"total_destinations"`
	Categories        map[string]int `json:"categories"`
	Brands            map[string]int `json:"brands"`
	PriceRanges       []PriceRange   `json:"price_ranges"`
	AvailableCount    int            `json:"available_count"`
	FullCount         int            `json:"full_count"`
	AvgRating         float64        `json:"avg_rating"`
	RatingCount       int            `json:"rating_count"`
	InStockTours      int            `json:"in_stock_tours"`
	OutOfStockTours   int            `json:"out_of_stock_tours"`
}

// ComputeStats walks every chunk once.
// Destinations are counted once each, in first-seen order. Stock counts are per unique
// tour (tour_id, falling back to product_id); chunks without an id are not counted.
func ComputeStats(chunks []Chunk) Stats {
	s := Stats{
		TotalChunks:     len(chunks),
		Destinations:    make(map[string]int),
		DestinationList: []string{},
		Categories:      make(map[string]int),
		Brands:          make(map[string]int),
		PriceRanges:     []PriceRange{},
	}

	var ratingSum float64
	seenTours := make(map[string]struct{})

	for _, c := range chunks {
		m := c.Metadata

		if dest := m.String(FieldDestination); dest != "" {
			if _, ok := s.Destinations[dest]; !ok {
				s.Destinations[dest] = 1
				s.DestinationList = append(s.DestinationList, dest)
			}
		}

		for _, cat := range m.Strings(FieldCategories) {
			s.Categories[cat]++
		}
		if brand := m.String(FieldBrand); brand != "" {
			s.Brands[brand]++
		}

		if lo, hi, ok := m.PriceRange(); ok {
			s.PriceRanges = append(s.PriceRanges, PriceRange{Min: lo, Max: hi})
		}

		if slots, _ := m.Float(FieldAvailableSlots); slots > 0 {
			s.AvailableCount++
		} else {
			s.FullCount++
		}

		if r, ok := m.Float(FieldRating); ok {
			ratingSum += r
			s.RatingCount++
		}

		id := tourKey(m)
		if id == "" {
			continue
		}
		if _, ok := seenTours[id]; ok {
			continue
		}
		seenTours[id] = struct{}{}
		if m.InStock() {
			s.InStockTours++
		} else {
			s.OutOfStockTours++
		}
	}

	if s.RatingCount > 0 {
		s.AvgRating = ratingSum / float64(s.RatingCount)
	}
	s.TotalDestinations = len(s.DestinationList)
	return s
}

// tourKey returns a stable identity for the catalog item a chunk belongs to.
func tourKey(m Metadata) string {
	if id := m.ID(FieldTourID); id != "" {
		return id
	}
	return m.ID(FieldProductID)
}
