package models

import (
	"fmt"
	"strings"
	"time"
)

// Verdict classifies the divergence between fair odds and market odds.
type Verdict int

const (
	Confirmed Verdict = iota
	Adjusted
	Rejected
)

var verdictNames = [...]string{"CONFIRMED", "ADJUSTED", "REJECTED"}

func (v Verdict) String() string {
	if v < Confirmed || v > Rejected {
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
	return verdictNames[v]
}

// ParseVerdict accepts the upper-case verdict name, case-insensitively.
func ParseVerdict(s string) (Verdict, error) {
	for i, name := range verdictNames {
		if strings.EqualFold(s, name) {
			return Verdict(i), nil
		}
	}
	return 0, fmt.Errorf("unknown verdict: %q", s)
}

func (v Verdict) MarshalText() ([]byte, error) {
	if v < Confirmed || v > Rejected {
		return nil, fmt.Errorf("invalid verdict: %d", int(v))
	}
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MatchReview is the display-ready recommendation for one match.
type MatchReview struct {
	MatchID     string  `json:"matchId,omitempty"`
	Tip         string  `json:"tip"`
	Odds        string  `json:"odds"`
	AuditOdds   string  `json:"auditOdds"`
	Status      Verdict `json:"status"`
	Explanation string  `json:"explanation"`
	Featured    bool    `json:"featured"`
	// Usable is false when no quote had both a probability and a price.
	Usable     bool    `json:"usable"`
	Edge       float64 `json:"edge"`
	Divergence float64 `json:"divergence"`
}

// ArchivedReview is a review as persisted by a review cycle.
type ArchivedReview struct {
	ID         string      `json:"id"`
	LeagueID   string      `json:"leagueId"`
	HomeTeam   string      `json:"homeTeam"`
	AwayTeam   string      `json:"awayTeam"`
	Review     MatchReview `json:"review"`
	ReviewedAt time.Time   `json:"reviewedAt"`
}
