package tracker

import (
	"context"
	"time"

	"courtside/internal/game"
	"courtside/internal/realtime"

	"github.com/rs/zerolog/log"
)

// writeIntents counts queued writes per field. A positive count means the
// local value is ahead of the store and must not be overwritten by a
// notification.
type writeIntents struct {
	stats    int
	fouls    int
	timeouts int
	// statGen grows with every stat write or undo queued. A projection read
	// while it moved is stale.
	statGen uint64
}

const reconcileFetchTimeout = 5 * time.Second

func (c *Controller) onChange(ch realtime.Change) {
	switch ch.Table {
	case realtime.TableGameStats:
		c.scheduleReconcile()
	case realtime.TableGames:
		go c.syncCounters()
	}
}

// scheduleReconcile debounces score reconciliation: a burst of stat
// notifications yields one recompute.
func (c *Controller) scheduleReconcile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.reconcileTimer != nil {
		c.reconcileTimer.Stop()
	}
	c.reconcileTimer = time.AfterFunc(c.deps.Config.ReconcileDebounce, c.recomputeScores)
}

// recomputeScores replaces local scores with the projection of the stored
// event log when no stat write is in flight.
func (c *Controller) recomputeScores() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.intents.stats > 0 {
		c.mu.Unlock()
		c.scheduleReconcile()
		return
	}
	gameID, coach, gen := c.s.gameID, c.s.coachMode, c.intents.statGen
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), reconcileFetchTimeout)
	defer cancel()
	events, err := c.deps.Store.GetGameStats(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("reconcile fetch failed")
		return
	}
	projected := game.ProjectScores(events, coach)

	c.mu.Lock()
	defer c.mu.Unlock()
	metricReconcileTotal.Add(1)
	if c.closed {
		return
	}
	if c.intents.stats > 0 || c.intents.statGen != gen {
		// A write was queued while we were reading; its notification
		// reschedules.
		return
	}
	changed := false
	for _, key := range c.s.sides() {
		want := projected[key]
		have := c.s.scores[key]
		if want == have {
			continue
		}
		delta := want - have
		if delta < 0 {
			delta = -delta
		}
		if delta > c.deps.Config.ReconcileLogDelta {
			log.Warn().Str("game_id", gameID).Str("team", key).Int("local", have).Int("stored", want).
				Msg("large score correction from event log")
		}
		c.s.scores[key] = want
		changed = true
	}
	if changed {
		metricReconcileCorrections.Add(1)
		c.publishLocked()
	}
}

// syncCounters adopts foul and timeout counters from the games row for the
// fields that have no local write pending.
func (c *Controller) syncCounters() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	gameID := c.s.gameID
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), reconcileFetchTimeout)
	defer cancel()
	g, err := c.deps.Store.GetGame(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("counter sync failed")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	changed := false
	if c.intents.fouls == 0 && c.intents.stats == 0 && g.Quarter == c.s.clock.Quarter {
		for _, key := range c.s.sides() {
			if v := g.TeamFouls[key]; v != c.s.fouls[key] {
				c.s.fouls[key] = v
				changed = true
			}
		}
	}
	if c.intents.timeouts == 0 {
		for _, key := range c.s.sides() {
			v, ok := g.TeamTimeouts[key]
			if ok && v != c.s.timeouts[key] {
				c.s.timeouts[key] = v
				changed = true
			}
		}
	}
	if changed {
		c.publishLocked()
	}
}
