package feed

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rewired-gh/oddsaudit/internal/models"
)

// ToMatch converts an upstream record into a typed match.
// All defaulting lives here: absent numbers become 0, absent lambdas stay nil, fractional
// probabilities are scaled to percent, negatives are clamped to 0.
func ToMatch(raw RawMatch) (models.Match, error) {
	id := strings.TrimSpace(string(raw.ID))
	if id == "" {
		return models.Match{}, errors.New("match record has no id")
	}

	m := models.Match{
		ID:       id,
		LeagueID: string(raw.LeagueID),
		HomeTeam: firstNonEmpty(string(raw.HomeTeam), string(raw.Home), "Home"),
		AwayTeam: firstNonEmpty(string(raw.AwayTeam), string(raw.Away), "Away"),
		Kickoff:  parseKickoff(firstNonEmpty(string(raw.Datetime), string(raw.Date))),
		Source:   string(raw.Source),
	}

	if raw.Stats != nil {
		m.Stats = toStats(*raw.Stats)
	}
	if raw.Odds != nil {
		m.Odds = models.Odds{
			Home:    nonNegative(raw.Odds.Home),
			Draw:    nonNegative(raw.Odds.Draw),
			Away:    nonNegative(raw.Odds.Away),
			Over25:  nonNegative(raw.Odds.Over25),
			BTTSYes: nonNegative(raw.Odds.BTTSYes),
		}
	}
	if raw.H2H != nil {
		m.H2H = models.HeadToHead{
			TotalMatches: count(raw.H2H.TotalMatches),
			HomeWins:     count(raw.H2H.HomeWins),
			Draws:        count(raw.H2H.Draws),
			AwayWins:     count(raw.H2H.AwayWins),
			AvgGoals:     nonNegative(raw.H2H.AvgGoals),
		}
	}

	if err := m.Validate(); err != nil {
		return models.Match{}, err
	}
	return m, nil
}

func toStats(raw RawStats) models.MatchStats {
	probs := []float64{
		nonNegative(raw.HomeWinProb), nonNegative(raw.DrawProb), nonNegative(raw.AwayWinProb),
		nonNegative(raw.Over25Prob), nonNegative(raw.BTTSProb),
	}

	// Some feeds send 0-1 fractions instead of percentages.
	fractional, anyPositive := true, false
	for _, p := range probs {
		if p > 1 {
			fractional = false
		}
		if p > 0 {
			anyPositive = true
		}
	}
	for i := range probs {
		if fractional && anyPositive {
			probs[i] *= 100
		}
		probs[i] = math.Min(probs[i], 100)
	}

	return models.MatchStats{
		HomeWinProb: probs[0],
		DrawProb:    probs[1],
		AwayWinProb: probs[2],
		Over25Prob:  probs[3],
		BTTSProb:    probs[4],
		LambdaHome:  optional(raw.LambdaHome),
		LambdaAway:  optional(raw.LambdaAway),
		LambdaTotal: optional(raw.LambdaTotal),
		Regime:      strings.TrimSpace(string(raw.Regime)),
	}
}

func optional(n *Number) *float64 {
	if n == nil {
		return nil
	}
	v := nonNegative(*n)
	return &v
}

func nonNegative(n Number) float64 {
	v := float64(n)
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// count converts a tally to int. Values that cannot be a real count become 0.
func count(n Number) int {
	v := nonNegative(n)
	if v > math.MaxInt32 {
		return 0
	}
	return int(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseKickoff(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
