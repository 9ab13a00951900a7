package game

import "errors"

var ErrInvalidStat = errors.New("invalid_stat")

// StatValue maps a stat type and modifier to its recorded value.
// Made shots count their points, missed shots are zero-point attempts and
// every other stat is one unit.
func StatValue(t StatType, m Modifier) int {
	if t.IsShot() {
		if m != ModifierMade {
			return 0
		}
		switch t {
		case StatThreePointer:
			return 3
		case StatFieldGoal:
			return 2
		default:
			return 1
		}
	}
	return 1
}

// Points returns the score contribution of the stat, zero for non-scoring stats.
func Points(t StatType, m Modifier) int {
	if !t.IsShot() || m != ModifierMade {
		return 0
	}
	return StatValue(t, m)
}

// ValidateStat rejects stat/modifier combinations the engines cannot interpret.
func ValidateStat(t StatType, m Modifier) error {
	if !t.Recordable() {
		return ErrInvalidStat
	}
	switch t {
	case StatFieldGoal, StatThreePointer, StatFreeThrow:
		if m != ModifierMade && m != ModifierMissed {
			return ErrInvalidStat
		}
	case StatRebound:
		if m != ModifierOffensive && m != ModifierDefensive {
			return ErrInvalidStat
		}
	case StatFoul:
		switch m {
		case ModifierNone, ModifierPersonal, ModifierShooting, ModifierOffensive, ModifierTechnical, ModifierFlagrant:
		default:
			return ErrInvalidStat
		}
	default:
		if m != ModifierNone {
			return ErrInvalidStat
		}
	}
	return nil
}

// ProjectScores replays the event log into per-key scores. The projection is
// idempotent: the same log always produces the same totals.
func ProjectScores(events []StatEvent, coachMode bool) map[string]int {
	out := map[string]int{}
	for _, ev := range events {
		if ev.Modifier != ModifierMade {
			continue
		}
		out[ScoreKey(ev.TeamID, ev.IsOpponentStat, coachMode)] += ev.StatValue
	}
	return out
}

// ProjectFouls counts fouls per key for a single quarter.
func ProjectFouls(events []StatEvent, quarter int, coachMode bool) map[string]int {
	out := map[string]int{}
	for _, ev := range events {
		if ev.StatType != StatFoul || ev.Quarter != quarter {
			continue
		}
		out[ScoreKey(ev.TeamID, ev.IsOpponentStat, coachMode)]++
	}
	return out
}

// ScoreKey picks the tally key for a stat; in coach mode opponent stats roll up
// into the synthetic opponent aggregate.
func ScoreKey(teamID string, isOpponent, coachMode bool) string {
	if coachMode && isOpponent {
		return OpponentKey
	}
	return teamID
}
