package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"courtside/internal/game"
	"courtside/internal/store"
	"courtside/internal/writequeue"

	"github.com/rs/zerolog/log"
)

// StatInput is one operator stat action.
type StatInput struct {
	TeamID         string        `json:"team_id"`
	PlayerID       string        `json:"player_id,omitempty"`
	CustomPlayerID string        `json:"custom_player_id,omitempty"`
	IsOpponentStat bool          `json:"is_opponent_stat"`
	StatType       game.StatType `json:"stat_type"`
	Modifier       game.Modifier `json:"modifier,omitempty"`
	// IdempotencyKey is generated when empty. Clients that retry a request
	// send the same key again.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	SequenceID     string `json:"sequence_id,omitempty"`
	LinkedEventKey string `json:"linked_event_key,omitempty"`
	// PromptResponse attaches the stat to the open play prompt: it inherits
	// the prompt's sequence and links to the primary event.
	PromptResponse        bool `json:"prompt_response,omitempty"`
	FinalFreeThrow        bool `json:"final_free_throw,omitempty"`
	TechnicalOrFlagrantFT bool `json:"technical_or_flagrant_ft,omitempty"`
}

type Receipt struct {
	IdempotencyKey string             `json:"idempotency_key"`
	StatValue      int                `json:"stat_value"`
	Ticket         *writequeue.Ticket `json:"-"`
}

// RecordStat applies a stat optimistically, runs it through the automation
// engines and queues the persistent write. The returned ticket settles once
// the write is confirmed or rolled back.
func (c *Controller) RecordStat(in StatInput) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLiveLocked(); err != nil {
		return Receipt{}, err
	}
	if err := game.ValidateStat(in.StatType, in.Modifier); err != nil {
		c.deps.Notifier.Error("Invalid stat", fmt.Sprintf("%s %s is not a recordable stat.", in.Modifier, in.StatType))
		return Receipt{}, err
	}
	if !s.isTeam(in.TeamID) {
		return Receipt{}, ErrInvalidTeam
	}

	key := in.IdempotencyKey
	if key == "" {
		key = store.NewID()
	}
	scoreKey := game.ScoreKey(in.TeamID, in.IsOpponentStat, s.coachMode)
	otherKey := s.otherSide(scoreKey)
	value := game.StatValue(in.StatType, in.Modifier)
	delta := statDelta{key: scoreKey, points: game.Points(in.StatType, in.Modifier), foul: in.StatType == game.StatFoul}

	seqID, linkedKey := in.SequenceID, in.LinkedEventKey
	finalFT, specialFT := in.FinalFreeThrow, in.TechnicalOrFlagrantFT
	if in.PromptResponse {
		if p := s.openPrompt(); p != nil {
			seqID = p.SequenceID
			linkedKey = p.PrimaryEventKey
			if p.Type == game.PromptFreeThrow && in.StatType == game.StatFreeThrow {
				specialFT = specialFT || metaBool(p.Metadata, "technical_or_flagrant_ft")
				remaining := metaInt(p.Metadata, "attempts") - 1
				if remaining <= 0 || finalFT {
					finalFT = true
					s.advancePrompt()
				} else {
					meta := copyMeta(p.Metadata)
					meta["attempts"] = remaining
					p.Metadata = meta
				}
			} else {
				s.advancePrompt()
			}
		}
	}
	stat := game.StatEvent{
		IdempotencyKey: key,
		GameID:         s.gameID,
		TeamID:         in.TeamID,
		PlayerID:       in.PlayerID,
		CustomPlayerID: in.CustomPlayerID,
		IsOpponentStat: in.IsOpponentStat,
		StatType:       in.StatType,
		Modifier:       in.Modifier,
		StatValue:      value,
		Quarter:        s.clock.Quarter,
		GameTimeSecs:   s.clock.Game.SecondsRemaining,
		SequenceID:     seqID,
	}

	// Optimistic tallies, one batched update before anything is written.
	s.apply(delta)
	s.lastAction = describeStat(in)

	ev := game.GameEvent{
		StatType:              in.StatType,
		Modifier:              in.Modifier,
		TeamID:                scoreKey,
		OpponentTeamID:        otherKey,
		TechnicalOrFlagrantFT: specialFT,
		IsOpponentStat:        in.IsOpponentStat,
		SequenceID:            seqID,
		FinalFreeThrow:        finalFT,
	}
	if in.StatType == game.StatRebound {
		ev.ReboundType = in.Modifier
	}
	// An assist rides on a made shot whose clock effect already happened.
	if in.StatType != game.StatAssist {
		s.clock = game.ProcessClockEvent(s.clock, ev, s.rules, s.auto).State
	}
	pe := game.PossessionEvent{
		Type:                    in.StatType,
		Modifier:                in.Modifier,
		TeamID:                  scoreKey,
		OpponentTeamID:          otherKey,
		IsTechnicalOrFlagrantFT: specialFT,
	}
	if in.StatType == game.StatFoul {
		pe.FoulType = in.Modifier
	}
	c.applyPossessionLocked(game.ProcessPossessionEvent(s.possessionState(), pe, s.rules, s.auto))

	inBonus := delta.foul && s.rules.BonusFouls > 0 && s.fouls[scoreKey] >= s.rules.BonusFouls
	seq := game.AnalyzeSequence(game.SequenceInput{
		Event:             ev,
		IdempotencyKey:    key,
		StatValue:         value,
		CoachMode:         s.coachMode,
		FouledTeamInBonus: inBonus,
	}, s.rules, s.auto)
	s.queuePrompts(seq.Queue)

	rec := &recordedStat{key: key, label: s.lastAction, delta: delta}
	s.lastStat = rec
	c.intents.stats++
	c.intents.statGen++
	st := c.deps.Store
	attempts := 0
	ticket := c.queue.Enqueue(writequeue.Job{
		Label: string(in.StatType),
		Key:   key,
		Retry: true,
		Run: func(ctx context.Context) (any, error) {
			attempts++
			out, err := st.RecordStat(ctx, store.StatInsert{Event: stat, LinkedEventKey: linkedKey})
			if errors.Is(err, store.ErrDuplicateKey) {
				// On a retry the conflict is our own earlier attempt landing.
				// On the first attempt the key was stored before and is
				// already part of the tallies.
				return statWrite{event: out, replay: attempts == 1}, nil
			}
			if err != nil {
				return nil, err
			}
			return statWrite{event: out}, nil
		},
		Settle: func(res any, err error) {
			c.settleStat(rec, res, err)
		},
	})
	if !delta.empty() {
		c.enqueueTalliesLocked()
	}
	log.Debug().Str("game_id", s.gameID).Str("stat_type", string(in.StatType)).Str("idempotency_key", key).
		Int("quarter", s.clock.Quarter).Int("stat_value", value).Msg("stat queued")
	c.publishLocked()
	return Receipt{IdempotencyKey: key, StatValue: value, Ticket: ticket}, nil
}

func (c *Controller) settleStat(rec *recordedStat, res any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	c.intents.stats--
	if err != nil {
		rec.failed = true
		if s.lastStat == rec {
			s.lastStat = nil
			s.lastAction = ""
		}
		if !rec.undone {
			s.revert(rec.delta)
		}
		metricStatRollbacks.Add(1)
		c.deps.Notifier.Error("Stat not saved", fmt.Sprintf("%s could not be saved and was rolled back.", rec.label))
		c.publishLocked()
		return
	}
	w, _ := res.(statWrite)
	if w.replay {
		rec.replay = true
		metricStatReplays.Add(1)
		if !rec.undone {
			s.revert(rec.delta)
		}
		if s.lastStat == rec {
			s.lastStat = nil
			s.lastAction = ""
		}
		log.Info().Str("game_id", s.gameID).Str("idempotency_key", rec.key).Msg("stat replay absorbed")
		c.publishLocked()
		return
	}
	rec.id = w.event.ID
	s.linkPrompts(rec.key, w.event.ID)
	metricStatsRecorded.Add(1)
	c.publishLocked()
}

type statWrite struct {
	event  game.StatEvent
	replay bool
}

// UndoLastAction removes the most recently recorded stat. Only one level is
// kept. The delete is queued behind the stat's own write, so undo right after
// RecordStat is safe.
func (c *Controller) UndoLastAction() (*writequeue.Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLiveLocked(); err != nil {
		return nil, err
	}
	rec := s.lastStat
	if rec == nil || rec.failed {
		return nil, ErrNothingToUndo
	}
	s.lastStat = nil
	s.lastAction = ""
	rec.undone = true
	s.revert(rec.delta)
	s.dropPromptsFor(rec.key)
	c.intents.stats++
	c.intents.statGen++
	metricUndoTotal.Add(1)

	st := c.deps.Store
	ticket := c.queue.Enqueue(writequeue.Job{
		Label: "undo",
		Key:   rec.key,
		Retry: true,
		Run: func(ctx context.Context) (any, error) {
			c.mu.Lock()
			id, failed, replay := rec.id, rec.failed, rec.replay
			c.mu.Unlock()
			// A replay owns no row; the stored event belongs to the first request.
			if failed || replay {
				return nil, nil
			}
			if id == "" {
				return nil, fmt.Errorf("stat %s has no persisted id", rec.key)
			}
			err := st.DeleteStat(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		},
		Settle: func(_ any, err error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.intents.stats--
			if err != nil && !rec.failed {
				rec.undone = false
				c.s.apply(rec.delta)
				if c.s.lastStat == nil {
					c.s.lastStat = rec
					c.s.lastAction = rec.label
				}
				c.deps.Notifier.Error("Undo failed", fmt.Sprintf("%s could not be removed.", rec.label))
			}
			c.publishLocked()
		},
	})
	if !rec.delta.empty() {
		c.enqueueTalliesLocked()
	}
	c.publishLocked()
	return ticket, nil
}

func (c *Controller) applyPossessionLocked(res game.PossessionResult) {
	if !res.ShouldPersist {
		return
	}
	s := c.s
	s.possession.CurrentTeamID = res.State.CurrentTeamID
	s.possession.Arrow = res.State.Arrow
	s.possession.LastChangeReason = res.EndReason
	s.possession.LastChangeTimestamp = c.deps.Now()
	team, arrow := s.possession.CurrentTeamID, s.possession.Arrow
	c.enqueueStateLocked("possession", store.GameUpdate{PossessionTeamID: &team, PossessionArrow: &arrow}, nil)
}

func describeStat(in StatInput) string {
	parts := []string{}
	if in.Modifier != game.ModifierNone {
		parts = append(parts, strings.ReplaceAll(string(in.Modifier), "_", " "))
	}
	parts = append(parts, strings.ReplaceAll(string(in.StatType), "_", " "))
	who := in.PlayerID
	if who == "" {
		who = in.CustomPlayerID
	}
	if in.IsOpponentStat {
		who = "opponent"
	}
	label := strings.Join(parts, " ")
	if who != "" {
		label += " by " + who
	}
	return label
}

func metaInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func metaBool(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func copyMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
