package game

type ClockActionType string

const (
	ClockActionStartGame ClockActionType = "start_game_clock"
	ClockActionStopGame  ClockActionType = "stop_game_clock"
	ClockActionStartShot ClockActionType = "start_shot_clock"
	ClockActionStopShot  ClockActionType = "stop_shot_clock"
	ClockActionResetShot ClockActionType = "reset_shot_clock"
)

type ClockAction struct {
	Type    ClockActionType `json:"type"`
	Seconds int             `json:"seconds,omitempty"`
}

// GameEvent is the engine-facing view of a recorded or operator action.
type GameEvent struct {
	StatType       StatType
	Modifier       Modifier
	TeamID         string
	OpponentTeamID string
	// ReboundType mirrors Modifier for rebounds recorded through a prompt.
	ReboundType Modifier
	// TechnicalOrFlagrantFT marks free throws awarded for technical or flagrant fouls.
	TechnicalOrFlagrantFT bool
	IsOpponentStat        bool
	SequenceID            string
	FinalFreeThrow        bool
}

func (e GameEvent) rebound() Modifier {
	if e.ReboundType != ModifierNone {
		return e.ReboundType
	}
	return e.Modifier
}

type ClockResult struct {
	State   ClockState
	Actions []ClockAction
}

// ProcessClockEvent decides how an event moves the game and shot clocks. It
// never mutates its input: the new state is returned together with the
// declarative actions that produced it. With clock automation off the state
// passes through untouched.
func ProcessClockEvent(state ClockState, ev GameEvent, rules Ruleset, auto AutomationFlags) ClockResult {
	if !auto.Clock {
		return ClockResult{State: state}
	}
	var actions []ClockAction
	stopGame := func() { actions = append(actions, ClockAction{Type: ClockActionStopGame}) }
	stopShot := func() { actions = append(actions, ClockAction{Type: ClockActionStopShot}) }
	resetShot := func(sec int) { actions = append(actions, ClockAction{Type: ClockActionResetShot, Seconds: sec}) }

	switch ev.StatType {
	case StatFieldGoal, StatThreePointer:
		if ev.Modifier == ModifierMade {
			resetShot(rules.FullShotClock())
			stopShot()
			if lateGame(state, rules) {
				stopGame()
			}
		}
	case StatFreeThrow:
		// Free throws are shot with the clocks stopped; a made final attempt
		// hands the ball over and restores a full shot clock.
		stopGame()
		stopShot()
		if ev.Modifier == ModifierMade && ev.FinalFreeThrow && !ev.TechnicalOrFlagrantFT {
			resetShot(rules.FullShotClock())
		}
	case StatRebound:
		switch ev.rebound() {
		case ModifierOffensive:
			if state.Shot.SecondsRemaining < rules.OffensiveReset() {
				resetShot(rules.OffensiveReset())
			}
		case ModifierDefensive:
			resetShot(rules.FullShotClock())
		}
	case StatFoul:
		stopGame()
		stopShot()
		switch ev.Modifier {
		case ModifierOffensive:
			resetShot(rules.FullShotClock())
		case ModifierTechnical:
		default:
			if state.Shot.SecondsRemaining < rules.OffensiveReset() {
				resetShot(rules.OffensiveReset())
			}
		}
	case StatTurnover:
		stopGame()
		stopShot()
		resetShot(rules.FullShotClock())
	case StatSteal:
		resetShot(rules.FullShotClock())
	case StatTimeout:
		stopGame()
		stopShot()
	case StatJumpBall:
		stopGame()
		stopShot()
		resetShot(rules.FullShotClock())
	}

	if !rules.HasShotClock {
		actions = withoutShotActions(actions)
	}
	return ClockResult{State: ApplyClockActions(state, actions), Actions: actions}
}

// ApplyClockActions folds actions into a copy of state, clamping every clock at zero.
func ApplyClockActions(state ClockState, actions []ClockAction) ClockState {
	next := state
	for _, a := range actions {
		switch a.Type {
		case ClockActionStartGame:
			if next.Game.SecondsRemaining > 0 {
				next.Game.Running = true
			}
		case ClockActionStopGame:
			next.Game.Running = false
		case ClockActionStartShot:
			if next.Shot.SecondsRemaining > 0 {
				next.Shot.Running = true
			}
		case ClockActionStopShot:
			next.Shot.Running = false
		case ClockActionResetShot:
			next.Shot.SecondsRemaining = clampShot(a.Seconds)
		}
	}
	return next
}

// TickClocks advances running clocks by one second.
func TickClocks(state ClockState) (ClockState, TickEvents) {
	next := state
	var evs TickEvents
	if next.Game.Running {
		next.Game.SecondsRemaining = nonNegative(next.Game.SecondsRemaining - 1)
		if next.Game.SecondsRemaining == 0 {
			next.Game.Running = false
			next.Shot.Running = false
			evs.PeriodExpired = true
		}
	}
	if next.Shot.Running {
		next.Shot.SecondsRemaining = nonNegative(next.Shot.SecondsRemaining - 1)
		if next.Shot.SecondsRemaining == 0 {
			next.Shot.Running = false
			evs.ShotClockViolation = true
		}
	}
	return next, evs
}

type TickEvents struct {
	PeriodExpired      bool
	ShotClockViolation bool
}

func lateGame(state ClockState, rules Ruleset) bool {
	if rules.LateClockStopSeconds <= 0 {
		return false
	}
	if state.Quarter < rules.regulationPeriods() {
		return false
	}
	return state.Game.SecondsRemaining <= rules.LateClockStopSeconds
}

func withoutShotActions(actions []ClockAction) []ClockAction {
	out := actions[:0:0]
	for _, a := range actions {
		switch a.Type {
		case ClockActionStartShot, ClockActionStopShot, ClockActionResetShot:
			continue
		}
		out = append(out, a)
	}
	return out
}

func clampShot(sec int) int {
	if sec > MaxShotClockSeconds {
		return MaxShotClockSeconds
	}
	return nonNegative(sec)
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
