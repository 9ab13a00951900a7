package game

import (
	"errors"
	"strconv"
)

var (
	ErrPeriodNotOver = errors.New("period_not_over")
	ErrTiedGame      = errors.New("tied_game")
)

type TransitionKind string

const (
	TransitionNone     TransitionKind = "none"
	TransitionQuarter  TransitionKind = "next_quarter"
	TransitionOvertime TransitionKind = "overtime"
	TransitionGameOver TransitionKind = "game_over"
)

type Transition struct {
	Kind         TransitionKind `json:"kind"`
	FromQuarter  int            `json:"from_quarter"`
	NextQuarter  int            `json:"next_quarter,omitempty"`
	ClockSeconds int            `json:"clock_seconds,omitempty"`
	WinnerKey    string         `json:"winner,omitempty"`
	FinalScores  map[string]int `json:"final_scores,omitempty"`
}

type periodPhase int

const (
	phaseRegulation periodPhase = iota
	phaseFinal
)

type transitionKey struct {
	phase periodPhase
	tied  bool
}

// periodTransitions is the whole quarter/overtime state machine. The final
// regulation period and every overtime share the phaseFinal rows.
var periodTransitions = map[transitionKey]TransitionKind{
	{phase: phaseRegulation, tied: false}: TransitionQuarter,
	{phase: phaseRegulation, tied: true}:  TransitionQuarter,
	{phase: phaseFinal, tied: true}:       TransitionOvertime,
	{phase: phaseFinal, tied: false}:      TransitionGameOver,
}

// NextPeriod evaluates the end-of-period transition. It fires only when the
// game clock reads zero and is stopped.
func NextPeriod(quarter int, clock GameClock, scores map[string]int, teams [2]string, rules Ruleset) (Transition, error) {
	if clock.SecondsRemaining != 0 || clock.Running {
		return Transition{Kind: TransitionNone, FromQuarter: quarter}, ErrPeriodNotOver
	}
	phase := phaseRegulation
	if quarter >= rules.regulationPeriods() {
		phase = phaseFinal
	}
	a, b := scores[teams[0]], scores[teams[1]]
	kind := periodTransitions[transitionKey{phase: phase, tied: a == b}]

	t := Transition{Kind: kind, FromQuarter: quarter}
	switch kind {
	case TransitionQuarter, TransitionOvertime:
		t.NextQuarter = quarter + 1
		t.ClockSeconds = rules.PeriodSeconds(quarter + 1)
	case TransitionGameOver:
		t.WinnerKey = teams[0]
		if b > a {
			t.WinnerKey = teams[1]
		}
		t.FinalScores = map[string]int{teams[0]: a, teams[1]: b}
	}
	return t, nil
}

// DecideWinner settles a final score. A tie is rejected unless the caller
// explicitly overrides it (coach-mode manual final score entry).
func DecideWinner(scores map[string]int, teams [2]string, allowTie bool) (string, error) {
	a, b := scores[teams[0]], scores[teams[1]]
	switch {
	case a > b:
		return teams[0], nil
	case b > a:
		return teams[1], nil
	case allowTie:
		return "", nil
	default:
		return "", ErrTiedGame
	}
}

// PeriodLabel renders Q1..Qn and OT1..OTn.
func PeriodLabel(quarter int, rules Ruleset) string {
	if rules.IsOvertime(quarter) {
		return "OT" + strconv.Itoa(quarter-rules.regulationPeriods())
	}
	return "Q" + strconv.Itoa(quarter)
}
