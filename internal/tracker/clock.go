package tracker

import (
	"context"
	"time"

	"courtside/internal/game"
	"courtside/internal/store"
	"courtside/internal/writequeue"
)

// StartClock starts the game clock, and the shot clock when it is automated.
// Starting a scheduled game moves it in progress.
func (c *Controller) StartClock() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLiveLocked(); err != nil {
		return err
	}
	if s.clock.Game.SecondsRemaining <= 0 {
		return ErrInvalidClockValue
	}
	s.clock.Game.Running = true
	if s.rules.HasShotClock && s.auto.Clock && s.clock.Shot.SecondsRemaining > 0 {
		s.clock.Shot.Running = true
	}
	if s.timeoutActive {
		s.timeoutActive = false
		s.timeoutTeamID = ""
	}
	if s.status == game.StatusScheduled {
		s.status = game.StatusInProgress
		st := s.status
		c.enqueueStateLocked("status", store.GameUpdate{Status: &st}, nil)
	}
	c.enqueueClockSyncLocked()
	c.publishLocked()
	return nil
}

func (c *Controller) StopClock() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return err
	}
	c.s.clock.Game.Running = false
	c.s.clock.Shot.Running = false
	c.enqueueClockSyncLocked()
	c.publishLocked()
	return nil
}

// ResetClock stops the clocks and restores a full period, optionally moving
// to another quarter first.
func (c *Controller) ResetClock(quarter *int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return err
	}
	q := c.s.clock.Quarter
	if quarter != nil {
		if *quarter < 1 {
			return ErrInvalidQuarter
		}
		q = *quarter
	}
	c.resetPeriodLocked(q)
	return nil
}

// SetCustomTime edits the game clock. The value can never exceed the game's
// configured quarter length.
func (c *Controller) SetCustomTime(minutes, seconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLiveLocked(); err != nil {
		return err
	}
	if minutes < 0 || seconds < 0 || seconds > 59 {
		return ErrInvalidClockValue
	}
	total := minutes*60 + seconds
	if total > c.s.originalQuarterLength*60 {
		return ErrInvalidClockValue
	}
	c.s.clock.Game.SecondsRemaining = total
	if total == 0 {
		c.s.clock.Game.Running = false
	}
	c.enqueueClockSyncLocked()
	c.publishLocked()
	return nil
}

func (c *Controller) StartShotClock() error {
	return c.shotClock(func(s *session) error {
		if s.clock.Shot.SecondsRemaining <= 0 {
			return ErrInvalidClockValue
		}
		s.clock.Shot.Running = true
		return nil
	})
}

func (c *Controller) StopShotClock() error {
	return c.shotClock(func(s *session) error {
		s.clock.Shot.Running = false
		return nil
	})
}

// ResetShotClock sets the shot clock to sec, or to the full value when sec is nil.
func (c *Controller) ResetShotClock(sec *int) error {
	return c.shotClock(func(s *session) error {
		v := s.rules.FullShotClock()
		if sec != nil {
			if *sec < 0 || *sec > game.MaxShotClockSeconds {
				return ErrInvalidClockValue
			}
			v = *sec
		}
		s.clock.Shot.SecondsRemaining = v
		return nil
	})
}

func (c *Controller) SetShotClockTime(sec int) error {
	return c.shotClock(func(s *session) error {
		if sec < 0 || sec > game.MaxShotClockSeconds {
			return ErrInvalidClockValue
		}
		s.clock.Shot.SecondsRemaining = sec
		if sec == 0 {
			s.clock.Shot.Running = false
		}
		return nil
	})
}

func (c *Controller) ToggleShotClockVisibility() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return err
	}
	if !c.s.rules.HasShotClock {
		return ErrInvalidClockValue
	}
	c.s.clock.Shot.Visible = !c.s.clock.Shot.Visible
	v := c.s.clock.Shot.Visible
	c.enqueueStateLocked("shot_clock_visibility", store.GameUpdate{ShotClockVisible: &v}, nil)
	c.publishLocked()
	return nil
}

func (c *Controller) shotClock(fn func(s *session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return err
	}
	if !c.s.rules.HasShotClock {
		return ErrInvalidClockValue
	}
	if err := fn(c.s); err != nil {
		return err
	}
	c.enqueueClockSyncLocked()
	c.publishLocked()
	return nil
}

// enqueueClockSyncLocked persists the clock as it reads right now.
func (c *Controller) enqueueClockSyncLocked() {
	s := c.s
	u := store.ClockUpdate{
		Minutes: s.clock.Game.SecondsRemaining / 60,
		Seconds: s.clock.Game.SecondsRemaining % 60,
		Running: s.clock.Game.Running,
	}
	if s.rules.HasShotClock {
		shot := s.clock.Shot.SecondsRemaining
		u.ShotClockSeconds = &shot
	}
	s.lastClockSync = c.deps.Now()
	gameID := s.gameID
	c.queue.Enqueue(writequeue.Job{
		Label: "clock",
		Retry: true,
		Run: func(ctx context.Context) (any, error) {
			return nil, c.deps.Store.UpdateGameClock(ctx, gameID, u)
		},
	})
}

// Tick advances running clocks by one second. Expiry of either clock is
// handled here: a shot clock violation stops play and, with possession
// automation, turns the ball over.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if c.closed || s.status.Terminal() {
		return
	}
	if !s.clock.Game.Running && !s.clock.Shot.Running {
		return
	}
	next, evs := game.TickClocks(s.clock)
	s.clock = next
	if evs.ShotClockViolation {
		metricShotClockViolations.Add(1)
		s.clock.Game.Running = false
		c.deps.Notifier.Warning("Shot clock violation", "The shot clock expired. Play is stopped.")
		if s.auto.Possession && s.possession.CurrentTeamID != "" {
			holder := s.possession.CurrentTeamID
			c.applyPossessionLocked(game.ProcessPossessionEvent(s.possessionState(), game.PossessionEvent{
				Type:           game.StatTurnover,
				TeamID:         holder,
				OpponentTeamID: s.otherSide(holder),
			}, s.rules, s.auto))
		}
	}
	switch {
	case evs.PeriodExpired || evs.ShotClockViolation:
		c.enqueueClockSyncLocked()
	case c.deps.Now().Sub(s.lastClockSync) >= c.deps.Config.ClockSyncInterval:
		c.enqueueClockSyncLocked()
	}
	c.publishLocked()
}

// Run ticks the clock once a second until ctx ends or the session closes.
func (c *Controller) Run(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-t.C:
			c.Tick()
		}
	}
}
