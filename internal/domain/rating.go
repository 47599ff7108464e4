package domain

import "github.com/shopspring/decimal"

// RatingSummary aggregates the non-deleted reviews of a product.
type RatingSummary struct {
	Average      decimal.Decimal
	Count        int
	Distribution map[int]int
}

// NewRatingSummary computes count and average from a rating histogram. The
// average is rounded to two places and is zero when there are no reviews.
// Ratings outside 1..5 are ignored.
func NewRatingSummary(histogram map[int]int) RatingSummary {
	s := RatingSummary{
		Average:      decimal.Zero,
		Distribution: make(map[int]int, MaxRating),
	}
	sum := decimal.Zero
	for rating := MinRating; rating <= MaxRating; rating++ {
		n := histogram[rating]
		s.Distribution[rating] = n
		s.Count += n
		sum = sum.Add(decimal.NewFromInt(int64(rating * n)))
	}
	if s.Count > 0 {
		s.Average = sum.Div(decimal.NewFromInt(int64(s.Count))).Round(2)
	}
	return s
}

// ApplyRating stores the summary on the product's denormalized fields.
func (p *Product) ApplyRating(s RatingSummary) {
	p.AverageRating = s.Average
	p.ReviewCount = s.Count
}
