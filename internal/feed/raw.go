package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Number decodes a JSON number, a numeric string, or null. Anything unparseable becomes 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*n = 0
		return nil
	}
	*n = Number(v)
	return nil
}

// Text decodes a JSON string, number, or an object with a "name" field.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case data[0] == '{':
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*t = Text(obj.Name)
	default:
		*t = Text(string(data))
	}
	return nil
}

// RawMatch is an upstream match record as loosely typed as the feeds send it.
type RawMatch struct {
	ID       Text      `json:"id"`
	LeagueID Text      `json:"leagueId"`
	HomeTeam Text      `json:"homeTeam"`
	Home     Text      `json:"home"`
	AwayTeam Text      `json:"awayTeam"`
	Away     Text      `json:"away"`
	Datetime Text      `json:"datetime"`
	Date     Text      `json:"date"`
	Source   Text      `json:"source"`
	Stats    *RawStats `json:"stats"`
	Odds     *RawOdds  `json:"odds"`
	H2H      *RawH2H   `json:"h2h"`
}

type RawStats struct {
	HomeWinProb Number  `json:"homeWinProb"`
	DrawProb    Number  `json:"drawProb"`
	AwayWinProb Number  `json:"awayWinProb"`
	Over25Prob  Number  `json:"over25Prob"`
	BTTSProb    Number  `json:"bttsProb"`
	LambdaHome  *Number `json:"lambdaHome"`
	LambdaAway  *Number `json:"lambdaAway"`
	LambdaTotal *Number `json:"lambdaTotal"`
	Regime      Text    `json:"regime"`
}

type RawOdds struct {
	Home    Number `json:"home"`
	Draw    Number `json:"draw"`
	Away    Number `json:"away"`
	Over25  Number `json:"over25"`
	BTTSYes Number `json:"bttsYes"`
}

type RawH2H struct {
	TotalMatches Number `json:"totalMatches"`
	HomeWins     Number `json:"homeWins"`
	Draws        Number `json:"draws"`
	AwayWins     Number `json:"awayWins"`
	AvgGoals     Number `json:"avgGoals"`
}

// DecodeMatches reads either {"matches": [...]} or a bare array of match records.
func DecodeMatches(r io.Reader) ([]RawMatch, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	if body[0] == '[' {
		var raws []RawMatch
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, fmt.Errorf("failed to decode matches: %w", err)
		}
		return raws, nil
	}

	var envelope struct {
		Matches []RawMatch `json:"matches"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode matches: %w", err)
	}
	return envelope.Matches, nil
}
