package game

// SequenceInput is a single newly recorded event plus the context needed to
// decide whether it opens follow-up prompts.
type SequenceInput struct {
	Event          GameEvent
	IdempotencyKey string
	StatValue      int
	CoachMode      bool
	// FouledTeamInBonus is true when the fouling team has reached the bonus
	// threshold with this foul.
	FouledTeamInBonus bool
}

type SequenceResult struct {
	Queue []PlayPrompt
}

// Empty reports whether no follow-up prompt is needed.
func (r SequenceResult) Empty() bool {
	return len(r.Queue) == 0
}

// AnalyzeSequence returns the ordered prompts implied by one recorded event.
//
// Shots that already belong to a foul sequence never prompt for assists or
// rebounds, and in coach mode prompts that would need an individual opposing
// player are dropped because the opponent is tracked only in aggregate.
func AnalyzeSequence(in SequenceInput, rules Ruleset, auto AutomationFlags) SequenceResult {
	if !auto.Sequences {
		return SequenceResult{}
	}
	ev := in.Event
	seqID := ev.SequenceID
	if seqID == "" {
		seqID = in.IdempotencyKey
	}
	prompt := func(t PromptType, team string, meta map[string]any) PlayPrompt {
		return PlayPrompt{
			Type:            t,
			SequenceID:      seqID,
			PrimaryEventKey: in.IdempotencyKey,
			TeamID:          team,
			Metadata:        meta,
		}
	}
	// In coach mode a tracked-team stat has no individual opposing player to pick.
	opponentUntracked := in.CoachMode && !ev.IsOpponentStat

	var queue []PlayPrompt
	switch ev.StatType {
	case StatFieldGoal, StatThreePointer:
		if ev.SequenceID != "" {
			break
		}
		if ev.Modifier == ModifierMade {
			if in.CoachMode && ev.IsOpponentStat {
				break
			}
			queue = append(queue, prompt(PromptAssist, ev.TeamID, map[string]any{"points": in.StatValue}))
			break
		}
		queue = append(queue, prompt(PromptRebound, "", map[string]any{"shot_team_id": ev.TeamID}))
	case StatBlock:
		if !opponentUntracked {
			queue = append(queue, prompt(PromptBlockedBy, ev.OpponentTeamID, map[string]any{"blocked_by_team_id": ev.TeamID}))
		}
		queue = append(queue, prompt(PromptRebound, "", map[string]any{"shot_team_id": ev.OpponentTeamID}))
	case StatSteal:
		if opponentUntracked {
			break
		}
		queue = append(queue, prompt(PromptTurnover, ev.OpponentTeamID, map[string]any{"stolen_by_team_id": ev.TeamID}))
	case StatFoul:
		attempts, special := freeThrowsForFoul(ev.Modifier, in.FouledTeamInBonus, rules)
		if attempts == 0 {
			break
		}
		meta := map[string]any{
			"attempts":                 attempts,
			"technical_or_flagrant_ft": special,
			"fouling_team_id":          ev.TeamID,
		}
		if opponentUntracked {
			meta["aggregate"] = true
		}
		queue = append(queue, prompt(PromptFreeThrow, ev.OpponentTeamID, meta))
	case StatFreeThrow:
		if ev.Modifier == ModifierMissed && ev.FinalFreeThrow && !ev.TechnicalOrFlagrantFT {
			queue = append(queue, prompt(PromptRebound, "", map[string]any{"shot_team_id": ev.TeamID}))
		}
	}
	if len(queue) > 0 {
		queue[0].IsOpen = true
	}
	return SequenceResult{Queue: queue}
}

func freeThrowsForFoul(m Modifier, inBonus bool, rules Ruleset) (int, bool) {
	switch m {
	case ModifierShooting:
		return 2, false
	case ModifierTechnical:
		return positiveOr(rules.TechnicalFreeThrows, 1), true
	case ModifierFlagrant:
		return positiveOr(rules.FlagrantFreeThrows, 2), true
	case ModifierOffensive:
		return 0, false
	default:
		if inBonus {
			return 2, false
		}
		return 0, false
	}
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
