package game

type PossessionState struct {
	CurrentTeamID string `json:"current_team_id"`
	Arrow         string `json:"possession_arrow"`
}

type PossessionEvent struct {
	Type                    StatType
	Modifier                Modifier
	TeamID                  string
	OpponentTeamID          string
	FoulType                Modifier
	IsTechnicalOrFlagrantFT bool
}

type PossessionActionType string

const (
	PossessionActionSet       PossessionActionType = "set_possession"
	PossessionActionFlipArrow PossessionActionType = "flip_arrow"
)

type PossessionAction struct {
	Type   PossessionActionType `json:"type"`
	TeamID string               `json:"team_id"`
}

type PossessionResult struct {
	State         PossessionState
	Actions       []PossessionAction
	EndReason     string
	ShouldPersist bool
}

// Possession change reasons.
const (
	ReasonMadeShot         = "made_shot"
	ReasonMadeFreeThrow    = "made_free_throw"
	ReasonTurnover         = "turnover"
	ReasonSteal            = "steal"
	ReasonDefensiveRebound = "defensive_rebound"
	ReasonOffensiveRebound = "offensive_rebound"
	ReasonOffensiveFoul    = "offensive_foul"
	ReasonJumpBall         = "jump_ball"
	ReasonManual           = "manual"
)

// ProcessPossessionEvent decides which team owns the ball after an event.
// Only transitions that actually move the ball request persistence.
func ProcessPossessionEvent(state PossessionState, ev PossessionEvent, rules Ruleset, auto AutomationFlags) PossessionResult {
	if !auto.Possession {
		return PossessionResult{State: state}
	}
	res := PossessionResult{State: state}
	give := func(team, reason string) {
		if team == "" {
			return
		}
		res.EndReason = reason
		if team == state.CurrentTeamID {
			return
		}
		res.State.CurrentTeamID = team
		res.Actions = append(res.Actions, PossessionAction{Type: PossessionActionSet, TeamID: team})
		res.ShouldPersist = true
	}

	switch ev.Type {
	case StatFieldGoal, StatThreePointer:
		if ev.Modifier == ModifierMade {
			give(ev.OpponentTeamID, ReasonMadeShot)
		}
	case StatFreeThrow:
		if ev.Modifier != ModifierMade {
			break
		}
		if ev.IsTechnicalOrFlagrantFT {
			// The shooting team keeps the ball it had before the foul.
			break
		}
		give(ev.OpponentTeamID, ReasonMadeFreeThrow)
	case StatTurnover:
		give(ev.OpponentTeamID, ReasonTurnover)
	case StatSteal:
		give(ev.TeamID, ReasonSteal)
	case StatRebound:
		switch ev.Modifier {
		case ModifierDefensive:
			give(ev.TeamID, ReasonDefensiveRebound)
		case ModifierOffensive:
			give(ev.TeamID, ReasonOffensiveRebound)
		}
	case StatFoul:
		foul := ev.FoulType
		if foul == ModifierNone {
			foul = ev.Modifier
		}
		if foul == ModifierOffensive {
			give(ev.OpponentTeamID, ReasonOffensiveFoul)
		}
	case StatJumpBall:
		if rules.UsePossessionArrow && state.Arrow != "" {
			winner := state.Arrow
			give(winner, ReasonJumpBall)
			res.State.Arrow = otherTeam(winner, ev.TeamID, ev.OpponentTeamID)
			res.Actions = append(res.Actions, PossessionAction{Type: PossessionActionFlipArrow, TeamID: res.State.Arrow})
			res.ShouldPersist = true
			break
		}
		give(ev.TeamID, ReasonJumpBall)
		if rules.UsePossessionArrow && state.Arrow == "" {
			// The opening tip sets the arrow toward the team that lost it.
			res.State.Arrow = ev.OpponentTeamID
			res.Actions = append(res.Actions, PossessionAction{Type: PossessionActionFlipArrow, TeamID: ev.OpponentTeamID})
			res.ShouldPersist = true
		}
	}
	return res
}

func otherTeam(team, a, b string) string {
	if team == a {
		return b
	}
	return a
}
