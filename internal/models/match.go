// Package models defines the domain entities: matches, market quotes, and reviews.
package models

import (
	"errors"
	"time"
)

// Odds holds the decimal odds quoted for the catalog markets. Zero means no quote.
type Odds struct {
	Home    float64 `json:"home"`
	Draw    float64 `json:"draw"`
	Away    float64 `json:"away"`
	Over25  float64 `json:"over25"`
	BTTSYes float64 `json:"bttsYes"`
}

// MatchStats carries model output for a match. Probabilities are percent scale (0-100).
// Lambda values and Regime are optional and only ever echoed into explanations.
type MatchStats struct {
	HomeWinProb float64  `json:"homeWinProb"`
	DrawProb    float64  `json:"drawProb"`
	AwayWinProb float64  `json:"awayWinProb"`
	Over25Prob  float64  `json:"over25Prob"`
	BTTSProb    float64  `json:"bttsProb"`
	LambdaHome  *float64 `json:"lambdaHome,omitempty"`
	LambdaAway  *float64 `json:"lambdaAway,omitempty"`
	LambdaTotal *float64 `json:"lambdaTotal,omitempty"`
	Regime      string   `json:"regime,omitempty"`
}

// HeadToHead aggregates prior meetings between the two teams.
type HeadToHead struct {
	TotalMatches int     `json:"totalMatches"`
	HomeWins     int     `json:"homeWins"`
	Draws        int     `json:"draws"`
	AwayWins     int     `json:"awayWins"`
	AvgGoals     float64 `json:"avgGoals"`
}

// Match is a fully typed upstream record, produced by the feed adapter.
type Match struct {
	ID       string     `json:"id"`
	LeagueID string     `json:"leagueId"`
	HomeTeam string     `json:"homeTeam"`
	AwayTeam string     `json:"awayTeam"`
	Kickoff  time.Time  `json:"kickoff"`
	Source   string     `json:"source,omitempty"`
	Stats    MatchStats `json:"stats"`
	Odds     Odds       `json:"odds"`
	H2H      HeadToHead `json:"h2h"`
}

// Validate checks match field constraints.
func (m *Match) Validate() error {
	if m.ID == "" {
		return errors.New("match ID must not be empty")
	}
	for _, p := range []float64{
		m.Stats.HomeWinProb, m.Stats.DrawProb, m.Stats.AwayWinProb,
		m.Stats.Over25Prob, m.Stats.BTTSProb,
	} {
		if p < 0 || p > 100 {
			return errors.New("probabilities must be between 0 and 100")
		}
	}
	for _, o := range []float64{m.Odds.Home, m.Odds.Draw, m.Odds.Away, m.Odds.Over25, m.Odds.BTTSYes} {
		if o < 0 {
			return errors.New("odds must not be negative")
		}
	}
	if m.H2H.TotalMatches < 0 {
		return errors.New("h2h total matches must not be negative")
	}
	if m.H2H.AvgGoals < 0 {
		return errors.New("h2h average goals must not be negative")
	}
	return nil
}

// MarketQuote is one candidate market for a match.
// A quote with ModelProbability <= 0 or MarketOdds <= 0 is unusable.
type MarketQuote struct {
	Label            string  `json:"label"`
	ModelProbability float64 `json:"modelProbability"`
	MarketOdds       float64 `json:"marketOdds"`
}

// Usable reports whether the quote carries both a model estimate and a market price.
func (q MarketQuote) Usable() bool {
	return q.ModelProbability > 0 && q.MarketOdds > 0
}
