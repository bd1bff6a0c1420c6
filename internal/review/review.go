package review

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rewired-gh/oddsaudit/internal/models"
)

// NoOdds is shown in place of a market price that was never quoted.
const NoOdds = "-"

// BuildReview selects the best market, prices it fairly, classifies the gap, and explains the result.
// It never fails: missing data surfaces as zero fair odds, NoOdds and Usable=false.
func BuildReview(quotes []models.MarketQuote, stats models.MatchStats, h2h models.HeadToHead) models.MatchReview {
	selected, usable := SelectBestMarket(quotes)
	fair := FairOdds(selected.ModelProbability)
	verdict, divergence := Classify(selected.MarketOdds, fair)

	var edge float64
	if usable {
		edge = Edge(selected)
	}

	odds := FormatOdds(selected.MarketOdds)
	auditOdds := formatFixed(fair, 2)

	return models.MatchReview{
		Tip:         selected.Label,
		Odds:        odds,
		AuditOdds:   auditOdds,
		Status:      verdict,
		Explanation: explain(verdict, auditOdds, odds, stats, h2h),
		Featured:    EdgeRatio(selected.MarketOdds, fair) > FeaturedMinEdgeRatio,
		Usable:      usable,
		Edge:        edge,
		Divergence:  divergence,
	}
}

// ReviewMatch reviews a typed match against the standard catalog.
func ReviewMatch(m models.Match) models.MatchReview {
	r := BuildReview(Catalog(m.Stats, m.Odds), m.Stats, m.H2H)
	r.MatchID = m.ID
	return r
}

// FormatOdds renders decimal odds with two decimals, or NoOdds when unset.
func FormatOdds(odds float64) string {
	if odds <= 0 {
		return NoOdds
	}
	return formatFixed(odds, 2)
}

// formatFixed renders v with a fixed number of decimals. NaN and infinities render as zero.
func formatFixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero.StringFixed(places)
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// explain clauses are appended in a fixed order: lambda, head-to-head, regime.
func explain(verdict models.Verdict, fair, market string, stats models.MatchStats, h2h models.HeadToHead) string {
	var b strings.Builder
	b.WriteString(verdict.String())
	b.WriteString(": fair odds ")
	b.WriteString(fair)
	b.WriteString(" vs market ")
	b.WriteString(market)
	b.WriteString(".")

	if stats.LambdaTotal != nil {
		b.WriteString(" Lambda total = ")
		b.WriteString(formatFixed(*stats.LambdaTotal, 1))
		b.WriteString(".")
	}
	if h2h.TotalMatches > 0 {
		b.WriteString(" H2H: ")
		b.WriteString(strconv.Itoa(h2h.TotalMatches))
		b.WriteString(" matches, avg ")
		b.WriteString(formatFixed(h2h.AvgGoals, 1))
		b.WriteString(" goals.")
	}
	if stats.Regime != "" {
		b.WriteString(" Regime: ")
		b.WriteString(stats.Regime)
		b.WriteString(".")
	}
	return b.String()
}
