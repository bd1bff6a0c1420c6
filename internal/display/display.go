// Package display maps review verdicts onto front-end presentation attributes.
package display

import "github.com/rewired-gh/oddsaudit/internal/models"

// Style is how a review badge is rendered.
type Style struct {
	Label    string `json:"label"`
	Color    string `json:"color"`
	CSSClass string `json:"cssClass"`
}

// NoMarket is used for reviews without a usable market, whatever their verdict.
var NoMarket = Style{Label: "NO MARKET", Color: "grey", CSSClass: "bg-gray-800/50 text-gray-400"}

var verdictStyles = map[models.Verdict]Style{
	models.Confirmed: {Label: "CONFIRMED", Color: "purple", CSSClass: "bg-purple-900/50 text-purple-300"},
	models.Adjusted:  {Label: "ADJUSTED", Color: "orange", CSSClass: "bg-orange-900/50 text-orange-300"},
	models.Rejected:  {Label: "REJECTED", Color: "red", CSSClass: "bg-red-900/50 text-red-300"},
}

// Attributes returns the badge style for a verdict. Unknown verdicts render like NoMarket.
func Attributes(v models.Verdict, usable bool) Style {
	if !usable {
		return NoMarket
	}
	if s, ok := verdictStyles[v]; ok {
		return s
	}
	return NoMarket
}

// ForReview is Attributes applied to a review.
func ForReview(r models.MatchReview) Style {
	return Attributes(r.Status, r.Usable)
}

// Table lists the style of every verdict in verdict order, for clients that render badges themselves.
func Table() []Style {
	return []Style{
		verdictStyles[models.Confirmed],
		verdictStyles[models.Adjusted],
		verdictStyles[models.Rejected],
		NoMarket,
	}
}
