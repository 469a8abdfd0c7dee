// Package review holds customer reviews and their aggregates.
package review

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Review is one approved customer review of a tour.
type Review struct {
	ID        int64
	Rating    int
	Comment   string
	CreatedAt time.Time
	Author    string
}

// Stats aggregates a tour's reviews.
type Stats struct {
	Total   int
	Average float64
	// Distribution counts reviews per star rating.
	Distribution map[int]int
}

// Aggregate computes totals over reviews. Average is rounded to one decimal.
func Aggregate(reviews []Review) Stats {
	st := Stats{Total: len(reviews), Distribution: make(map[int]int)}
	if len(reviews) == 0 {
		return st
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
		st.Distribution[r.Rating]++
	}
	st.Average = math.Round(float64(sum)/float64(len(reviews))*10) / 10
	return st
}

// DistributionLabel renders the distribution from highest rating down, e.g. "5 sao: 3, 4 sao: 1".
func (s Stats) DistributionLabel() string {
	ratings := make([]int, 0, len(s.Distribution))
	for r := range s.Distribution {
		ratings = append(ratings, r)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ratings)))

	parts := make([]string, len(ratings))
	for i, r := range ratings {
		parts[i] = fmt.Sprintf("%d sao: %d", r, s.Distribution[r])
	}
	return strings.Join(parts, ", ")
}
