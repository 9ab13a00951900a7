package tracker

import (
	"context"
	"errors"
	"fmt"

	"courtside/internal/game"
	"courtside/internal/store"
	"courtside/internal/writequeue"
)

// Timeout kinds.
const (
	TimeoutFull  = "full"
	TimeoutShort = "short"
)

// StartTimeout charges a timeout to teamID and stops both clocks. A team
// with none left is warned and nothing changes.
func (c *Controller) StartTimeout(teamID, kind string) (*writequeue.Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLiveLocked(); err != nil {
		return nil, err
	}
	if s.timeoutActive {
		return nil, ErrTimeoutActive
	}
	if !s.isSide(teamID) {
		return nil, ErrInvalidTeam
	}
	if s.timeouts[teamID] <= 0 {
		c.deps.Notifier.Warning("No timeouts remaining", "This team has used all of its timeouts.")
		return nil, ErrNoTimeoutsRemaining
	}
	if kind == "" {
		kind = TimeoutFull
	}

	s.timeouts[teamID]--
	s.clock = game.ProcessClockEvent(s.clock, game.GameEvent{StatType: game.StatTimeout, TeamID: teamID}, s.rules, game.AllAutomation()).State
	s.timeoutActive = true
	s.timeoutTeamID = teamID
	c.intents.timeouts++

	rec := store.TimeoutRecord{
		IdempotencyKey: store.NewID(),
		GameID:         s.gameID,
		TeamID:         teamID,
		Type:           kind,
		Quarter:        s.clock.Quarter,
		GameTimeSecs:   s.clock.Game.SecondsRemaining,
	}
	st := c.deps.Store
	ticket := c.queue.Enqueue(writequeue.Job{
		Label: "timeout",
		Key:   rec.IdempotencyKey,
		Retry: true,
		Run: func(ctx context.Context) (any, error) {
			if _, err := st.RecordTimeout(ctx, rec); err != nil && !errors.Is(err, store.ErrDuplicateKey) {
				return nil, err
			}
			c.mu.Lock()
			remaining := copyCounts(c.s.timeouts)
			c.mu.Unlock()
			return nil, st.UpdateGameState(ctx, rec.GameID, store.GameUpdate{TeamTimeouts: remaining})
		},
		Settle: func(_ any, err error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.intents.timeouts--
			if err != nil {
				c.s.timeouts[teamID]++
				if c.s.timeoutTeamID == teamID {
					c.s.timeoutActive = false
					c.s.timeoutTeamID = ""
				}
				c.deps.Notifier.Error("Timeout not saved", "The timeout could not be saved and was restored.")
			}
			c.publishLocked()
		},
	})
	c.enqueueClockSyncLocked()
	c.publishLocked()
	return ticket, nil
}

// ResumeFromTimeout ends the active timeout and restarts the game clock.
func (c *Controller) ResumeFromTimeout() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLocked(); err != nil {
		return err
	}
	if !s.timeoutActive {
		return ErrNoTimeoutActive
	}
	s.timeoutActive = false
	s.timeoutTeamID = ""
	if s.clock.Game.SecondsRemaining > 0 {
		s.clock.Game.Running = true
	}
	c.enqueueClockSyncLocked()
	c.publishLocked()
	return nil
}

type Substitution struct {
	TeamID      string `json:"team_id"`
	PlayerOutID string `json:"player_out_id"`
	PlayerInID  string `json:"player_in_id"`
}

// Substitute swaps a player on court for one on the bench.
func (c *Controller) Substitute(sub Substitution) (*writequeue.Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLocked(); err != nil {
		return nil, err
	}
	roster, ok := s.rosters[sub.TeamID]
	if !ok || sub.PlayerOutID == sub.PlayerInID || !roster.IsOnCourt(sub.PlayerOutID) || !roster.IsOnBench(sub.PlayerInID) {
		return nil, ErrInvalidSubstitution
	}
	s.rosters[sub.TeamID] = roster.Swap(sub.PlayerOutID, sub.PlayerInID)
	s.lastAction = fmt.Sprintf("%s in for %s", sub.PlayerInID, sub.PlayerOutID)

	rec := store.SubstitutionRecord{
		IdempotencyKey: store.NewID(),
		GameID:         s.gameID,
		TeamID:         sub.TeamID,
		PlayerOutID:    sub.PlayerOutID,
		PlayerInID:     sub.PlayerInID,
		Quarter:        s.clock.Quarter,
		GameTimeSecs:   s.clock.Game.SecondsRemaining,
	}
	st := c.deps.Store
	ticket := c.queue.Enqueue(writequeue.Job{
		Label: "substitution",
		Key:   rec.IdempotencyKey,
		Retry: true,
		Run: func(ctx context.Context) (any, error) {
			out, err := st.RecordSubstitution(ctx, rec)
			if errors.Is(err, store.ErrDuplicateKey) {
				return out, nil
			}
			return out, err
		},
		Settle: func(_ any, err error) {
			if err == nil {
				return
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			// Undo only this swap. Later substitutions on the same team stay.
			cur := c.s.rosters[sub.TeamID]
			if cur.IsOnCourt(sub.PlayerInID) && cur.IsOnBench(sub.PlayerOutID) {
				c.s.rosters[sub.TeamID] = cur.Swap(sub.PlayerInID, sub.PlayerOutID)
			}
			c.deps.Notifier.Error("Substitution not saved", "The substitution could not be saved and was reverted.")
			c.publishLocked()
		},
	})
	c.publishLocked()
	return ticket, nil
}

// ManualSetPossession gives the ball to teamID.
func (c *Controller) ManualSetPossession(teamID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLocked(); err != nil {
		return err
	}
	if !s.isSide(teamID) {
		return ErrInvalidTeam
	}
	if reason == "" {
		reason = game.ReasonManual
	}
	s.possession.CurrentTeamID = teamID
	s.possession.LastChangeReason = reason
	s.possession.LastChangeTimestamp = c.deps.Now()
	team := teamID
	c.enqueueStateLocked("possession", store.GameUpdate{PossessionTeamID: &team}, nil)
	c.publishLocked()
	return nil
}

// SetPossessionArrow points the alternating possession arrow at teamID.
func (c *Controller) SetPossessionArrow(teamID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLocked(); err != nil {
		return err
	}
	if !s.isSide(teamID) {
		return ErrInvalidTeam
	}
	s.possession.Arrow = teamID
	arrow := teamID
	c.enqueueStateLocked("possession_arrow", store.GameUpdate{PossessionArrow: &arrow}, nil)
	c.publishLocked()
	return nil
}

// RecordJumpBall resolves a held ball or opening tip won by teamID. With the
// alternating arrow in use the arrow decides instead.
func (c *Controller) RecordJumpBall(teamID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLocked(); err != nil {
		return err
	}
	if !s.isSide(teamID) {
		return ErrInvalidTeam
	}
	ev := game.GameEvent{StatType: game.StatJumpBall, TeamID: teamID, OpponentTeamID: s.otherSide(teamID)}
	s.clock = game.ProcessClockEvent(s.clock, ev, s.rules, s.auto).State
	c.applyPossessionLocked(game.ProcessPossessionEvent(s.possessionState(), game.PossessionEvent{
		Type:           game.StatJumpBall,
		TeamID:         teamID,
		OpponentTeamID: s.otherSide(teamID),
	}, s.rules, s.auto))
	s.lastAction = "jump ball"
	c.enqueueClockSyncLocked()
	c.publishLocked()
	return nil
}
