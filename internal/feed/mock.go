package feed

import (
	"fmt"
	"time"

	"github.com/rewired-gh/oddsaudit/internal/models"
)

// MockMatches returns two deterministic sample matches per league, kicking off an hour after now.
func MockMatches(leagueIDs []string, now time.Time) []models.Match {
	lambda := func(v float64) *float64 { return &v }
	kickoff := now.Add(time.Hour).UTC().Truncate(time.Minute)

	var out []models.Match
	for _, leagueID := range leagueIDs {
		out = append(out,
			models.Match{
				ID:       fmt.Sprintf("%s-mock-1", leagueID),
				LeagueID: leagueID,
				HomeTeam: "Team A",
				AwayTeam: "Team B",
				Kickoff:  kickoff,
				Source:   "mock",
				Stats: models.MatchStats{
					HomeWinProb: 48, DrawProb: 28, AwayWinProb: 24,
					Over25Prob: 55, BTTSProb: 52,
					LambdaHome: lambda(1.5), LambdaAway: lambda(1.1), LambdaTotal: lambda(2.6),
					Regime: "NORMAL",
				},
				Odds: models.Odds{Home: 1.9, Draw: 3.4, Away: 2.2, Over25: 1.9, BTTSYes: 1.85},
				H2H:  models.HeadToHead{TotalMatches: 5, HomeWins: 2, Draws: 1, AwayWins: 2, AvgGoals: 2.8},
			},
			models.Match{
				ID:       fmt.Sprintf("%s-mock-2", leagueID),
				LeagueID: leagueID,
				HomeTeam: "Team C",
				AwayTeam: "Team D",
				Kickoff:  kickoff,
				Source:   "mock",
				Stats: models.MatchStats{
					HomeWinProb: 40, DrawProb: 30, AwayWinProb: 30,
					Over25Prob: 58, BTTSProb: 52,
				},
				Odds: models.Odds{Home: 2.1, Draw: 3.1, Away: 2.8, Over25: 1.9, BTTSYes: 1.85},
			},
		)
	}
	return out
}
