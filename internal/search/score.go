package search

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type Outcome uint8

const (
	OutcomeHeuristic Outcome = iota
	OutcomeDraw
	OutcomeWin
	OutcomeLoss

	// search window bounds, never produced by an evaluation
	outcomeNegInf
	outcomePosInf
)

var outcomeNames = map[Outcome]string{
	OutcomeHeuristic: "heuristic",
	OutcomeDraw:      "draw",
	OutcomeWin:       "win",
	OutcomeLoss:      "loss",
	outcomeNegInf:    "-inf",
	outcomePosInf:    "+inf",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "outcome(" + strconv.Itoa(int(o)) + ")"
}

func ParseOutcome(s string) (Outcome, error) {
	for o, name := range outcomeNames {
		if name == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// Score is a search value seen from the AI. Wins rank above and losses
// below every heuristic value; a draw ranks as heuristic 0.
type Score struct {
	Outcome Outcome
	Value   int
}

var (
	NegInf = Score{Outcome: outcomeNegInf}
	PosInf = Score{Outcome: outcomePosInf}
)

func Win() Score { return Score{Outcome: OutcomeWin} }
func Loss() Score { return Score{Outcome: OutcomeLoss} }
func Draw() Score { return Score{Outcome: OutcomeDraw} }
func Heuristic(value int) Score { return Score{Outcome: OutcomeHeuristic, Value: value} }

func (s Score) tier() int {
	switch s.Outcome {
	case outcomeNegInf:
		return 0
	case OutcomeLoss:
		return 1
	case OutcomeWin:
		return 3
	case outcomePosInf:
		return 4
	}
	return 2
}

// Compare orders scores by tier first, then by heuristic value.
func (s Score) Compare(o Score) int {
	if a, b := s.tier(), o.tier(); a != b {
		if a < b {
			return -1
		}
		return 1
	}
	if s.tier() != 2 {
		return 0
	}
	switch {
	case s.Value < o.Value:
		return -1
	case s.Value > o.Value:
		return 1
	}
	return 0
}

func (s Score) Less(o Score) bool { return s.Compare(o) < 0 }
func (s Score) Greater(o Score) bool { return s.Compare(o) > 0 }

func maxScore(a, b Score) Score {
	if b.Greater(a) {
		return b
	}
	return a
}

func minScore(a, b Score) Score {
	if b.Less(a) {
		return b
	}
	return a
}

func (s Score) String() string {
	if s.Outcome == OutcomeHeuristic {
		return strconv.Itoa(s.Value)
	}
	return s.Outcome.String()
}

type scoreJSON struct {
	Outcome string `json:"outcome"`
	Value   int    `json:"value"`
}

func (s Score) MarshalJSON() ([]byte, error) {
	return json.Marshal(scoreJSON{Outcome: s.Outcome.String(), Value: s.Value})
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var raw scoreJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o, err := ParseOutcome(raw.Outcome)
	if err != nil {
		return err
	}
	*s = Score{Outcome: o, Value: raw.Value}
	return nil
}
