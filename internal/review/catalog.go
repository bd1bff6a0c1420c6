// Package review turns per-match probabilities and prices into a display-ready recommendation.
//
// Everything here is pure: no I/O, no clocks, no shared state. A review for one match never depends
// on another match, so batches can be spread across goroutines freely (see Engine).
package review

import "github.com/rewired-gh/oddsaudit/internal/models"

// Catalog market labels, in selection order.
const (
	LabelHome    = "Home Win (1)"
	LabelDraw    = "Draw (X)"
	LabelAway    = "Away Win (2)"
	LabelOver25  = "Over 2.5"
	LabelBTTSYes = "BTTS Yes"
)

// Catalog builds the fixed-order candidate list for one match.
// The order is the tie-break for SelectBestMarket.
func Catalog(stats models.MatchStats, odds models.Odds) []models.MarketQuote {
	return []models.MarketQuote{
		{Label: LabelHome, ModelProbability: stats.HomeWinProb, MarketOdds: odds.Home},
		{Label: LabelDraw, ModelProbability: stats.DrawProb, MarketOdds: odds.Draw},
		{Label: LabelAway, ModelProbability: stats.AwayWinProb, MarketOdds: odds.Away},
		{Label: LabelOver25, ModelProbability: stats.Over25Prob, MarketOdds: odds.Over25},
		{Label: LabelBTTSYes, ModelProbability: stats.BTTSProb, MarketOdds: odds.BTTSYes},
	}
}
