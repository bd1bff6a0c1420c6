package review

import (
	"math"

	"github.com/rewired-gh/oddsaudit/internal/models"
)

// Divergence bands. Each upper bound is inclusive.
const (
	ConfirmedMaxDivergence = 0.05
	AdjustedMaxDivergence  = 0.15
)

// FeaturedMinEdgeRatio is the market-over-fair premium a review must exceed to be featured.
const FeaturedMinEdgeRatio = 0.10

// ratioPrecision absorbs binary representation error, so 1.05 against 1.00 is exactly 0.05.
const ratioPrecision = 1e9

func roundRatio(r float64) float64 {
	r = clampFinite(r)
	scaled := r * ratioPrecision
	if math.IsInf(scaled, 0) {
		return r
	}
	return math.Round(scaled) / ratioPrecision
}

// Divergence is the relative distance between market and fair odds, or 0 when fair odds are undefined.
func Divergence(marketOdds, fairOdds float64) float64 {
	if fairOdds <= 0 {
		return 0
	}
	return roundRatio(math.Abs(marketOdds-fairOdds) / fairOdds)
}

// Classify assigns a verdict to the divergence between market and fair odds.
func Classify(marketOdds, fairOdds float64) (models.Verdict, float64) {
	d := Divergence(marketOdds, fairOdds)
	switch {
	case d <= ConfirmedMaxDivergence:
		return models.Confirmed, d
	case d <= AdjustedMaxDivergence:
		return models.Adjusted, d
	default:
		return models.Rejected, d
	}
}

// EdgeRatio is how much better than fair the market price is; 0 when either side is missing.
func EdgeRatio(marketOdds, fairOdds float64) float64 {
	if fairOdds <= 0 || marketOdds <= 0 {
		return 0
	}
	return roundRatio(marketOdds/fairOdds - 1)
}
