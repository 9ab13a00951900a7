package tracker

import (
	"context"
	"errors"

	"courtside/internal/checkpoint"

	"github.com/rs/zerolog/log"
)

// restoreCheckpoint applies a locally saved clock that is newer than the
// stored one. A checkpoint is consumed whether or not it is applied.
func (c *Controller) restoreCheckpoint(ctx context.Context) bool {
	if c.deps.Checkpoints == nil {
		return false
	}
	gameID := c.s.gameID
	cp, err := c.deps.Checkpoints.Load(ctx, gameID)
	if err != nil {
		if !errors.Is(err, checkpoint.ErrNoCheckpoint) {
			log.Warn().Err(err).Str("game_id", gameID).Msg("checkpoint load failed")
		}
		return false
	}
	if err := c.deps.Checkpoints.Discard(ctx, gameID); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("checkpoint discard failed")
	}
	if !cp.Fresh(c.deps.Now(), c.deps.Config.CheckpointWindow) {
		log.Debug().Str("game_id", gameID).Time("saved_at", cp.SavedAt).Msg("stale checkpoint ignored")
		return false
	}
	if cp.Quarter != 0 && cp.Quarter != c.s.clock.Quarter {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.clock.Game.SecondsRemaining = clampZero(cp.TotalSeconds())
	c.s.clock.Game.Running = false
	if c.s.rules.HasShotClock {
		shot := clampZero(cp.ShotClockSeconds)
		if shot > c.s.rules.FullShotClock() {
			shot = c.s.rules.FullShotClock()
		}
		c.s.clock.Shot.SecondsRemaining = shot
	}
	c.s.clock.Shot.Running = false
	metricCheckpointsRestored.Add(1)
	log.Info().Str("game_id", gameID).Int("seconds", c.s.clock.Game.SecondsRemaining).Msg("clock restored from checkpoint")
	return true
}

// SaveClockBeforeExit stops both clocks and records them locally so a reload
// resumes from the exact second, even if the store write does not land.
func (c *Controller) SaveClockBeforeExit(ctx context.Context) error {
	c.mu.Lock()
	c.s.clock.Game.Running = false
	c.s.clock.Shot.Running = false
	cp := checkpoint.Clock{
		GameID:           c.s.gameID,
		Minutes:          c.s.clock.Game.SecondsRemaining / 60,
		Seconds:          c.s.clock.Game.SecondsRemaining % 60,
		Quarter:          c.s.clock.Quarter,
		ShotClockSeconds: c.s.clock.Shot.SecondsRemaining,
		SavedAt:          c.deps.Now(),
	}
	if !c.closed {
		c.enqueueClockSyncLocked()
	}
	c.publishLocked()
	c.mu.Unlock()

	if c.deps.Checkpoints == nil {
		return nil
	}
	if err := c.deps.Checkpoints.Save(ctx, cp); err != nil {
		return err
	}
	metricCheckpointsSaved.Add(1)
	return nil
}
