package review

import (
	"math"

	"github.com/rewired-gh/oddsaudit/internal/models"
)

// Edge is the expected profit per unit staked if the model probability (percent) is right.
func Edge(q models.MarketQuote) float64 {
	return clampFinite(q.MarketOdds*q.ModelProbability/100 - 1)
}

// SelectBestMarket returns the usable quote with the strictly greatest edge; the earliest quote wins ties.
//
// When no quote is usable the first quote is returned unchanged together with false, and an empty
// list yields the zero quote and false. Callers should treat false as "no usable market".
func SelectBestMarket(quotes []models.MarketQuote) (models.MarketQuote, bool) {
	best := -1
	var bestEdge float64
	for i, q := range quotes {
		if !q.Usable() {
			continue
		}
		e := Edge(q)
		if best < 0 || e > bestEdge {
			best, bestEdge = i, e
		}
	}
	if best >= 0 {
		return quotes[best], true
	}
	if len(quotes) == 0 {
		return models.MarketQuote{}, false
	}
	return quotes[0], false
}

// FairOdds converts a percent probability into break-even decimal odds.
// Non-positive input, and probabilities so small that the odds overflow, yield 0.
func FairOdds(modelProbability float64) float64 {
	if modelProbability <= 0 {
		return 0
	}
	fair := 100 / modelProbability
	if math.IsInf(fair, 0) || math.IsNaN(fair) {
		return 0
	}
	return fair
}

// clampFinite maps NaN to 0 and infinities to the largest finite float of the same sign.
func clampFinite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}
