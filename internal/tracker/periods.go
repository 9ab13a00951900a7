package tracker

import (
	"errors"
	"fmt"

	"courtside/internal/game"
	"courtside/internal/store"

	"github.com/rs/zerolog/log"
)

// SetQuarter jumps to quarter n and resets the period. A game waiting for
// awards goes back to live play.
func (c *Controller) SetQuarter(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardLocked(); err != nil {
		return err
	}
	if n < 1 {
		return ErrInvalidQuarter
	}
	c.resetPeriodLocked(n)
	return nil
}

// resetPeriodLocked is the single path that starts a period: clock at the
// period length and stopped, full shot clock, fouls cleared. The change is
// persisted as one games row update.
func (c *Controller) resetPeriodLocked(q int) {
	s := c.s
	s.clock.Quarter = q
	s.clock.Game = game.GameClock{SecondsRemaining: s.rules.PeriodSeconds(q)}
	s.clock.Shot.SecondsRemaining = s.rules.FullShotClock()
	s.clock.Shot.Running = false
	if !s.rules.HasShotClock {
		s.clock.Shot.SecondsRemaining = 0
	}
	s.resetFouls()
	s.awaitingAwards = false
	s.winnerKey = ""
	s.finalScores = nil
	s.manualFinal = false
	if s.rules.IsOvertime(q) {
		s.status = game.StatusOvertime
	} else if s.status != game.StatusScheduled {
		s.status = game.StatusInProgress
	}

	status := s.status
	quarter := q
	clock := &store.ClockUpdate{
		Minutes: s.clock.Game.SecondsRemaining / 60,
		Seconds: s.clock.Game.SecondsRemaining % 60,
	}
	if s.rules.HasShotClock {
		shot := s.clock.Shot.SecondsRemaining
		clock.ShotClockSeconds = &shot
	}
	s.lastClockSync = c.deps.Now()
	c.intents.fouls++
	c.enqueueStateLocked("period", store.GameUpdate{
		Status:    &status,
		Quarter:   &quarter,
		Clock:     clock,
		TeamFouls: copyCounts(s.fouls),
	}, func(error) {
		c.mu.Lock()
		c.intents.fouls--
		c.mu.Unlock()
	})
	log.Info().Str("game_id", s.gameID).Int("quarter", q).Str("period", game.PeriodLabel(q, s.rules)).Msg("period reset")
	c.publishLocked()
}

// AdvanceIfNeeded runs the end-of-period transition once the game clock has
// reached zero. It returns TransitionNone while the period is still live.
func (c *Controller) AdvanceIfNeeded() (game.Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLocked(); err != nil {
		return game.Transition{}, err
	}
	if s.awaitingAwards {
		return game.Transition{Kind: game.TransitionNone, FromQuarter: s.clock.Quarter}, nil
	}
	if s.clock.Game.SecondsRemaining == 0 {
		s.clock.Game.Running = false
	}
	t, err := game.NextPeriod(s.clock.Quarter, s.clock.Game, s.scores, s.sides(), s.rules)
	if errors.Is(err, game.ErrPeriodNotOver) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	switch t.Kind {
	case game.TransitionQuarter, game.TransitionOvertime:
		c.resetPeriodLocked(t.NextQuarter)
		if t.Kind == game.TransitionOvertime {
			c.deps.Notifier.Warning("Overtime", fmt.Sprintf("Tied at the end of regulation. %s begins.", game.PeriodLabel(t.NextQuarter, s.rules)))
		}
	case game.TransitionGameOver:
		s.clock.Shot.Running = false
		s.awaitingAwards = true
		s.winnerKey = t.WinnerKey
		s.finalScores = t.FinalScores
		s.manualFinal = false
		c.deps.Notifier.Success("Final", "The game is over. Select awards to complete it.")
		c.publishLocked()
	}
	return t, nil
}

// CloseGame ends the game early. Only coach mode accepts manually entered
// final scores, and only a manual entry may finish tied.
func (c *Controller) CloseGame(manual map[string]int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLocked(); err != nil {
		return err
	}
	scores := s.scores
	if manual != nil {
		if !s.coachMode {
			return ErrScoreOverride
		}
		scores = map[string]int{}
		for _, key := range s.sides() {
			v, ok := manual[key]
			if !ok || v < 0 {
				return ErrScoreOverride
			}
			scores[key] = v
		}
	}
	winner, err := game.DecideWinner(scores, s.sides(), manual != nil)
	if err != nil {
		c.deps.Notifier.Warning("Tied game", "A game cannot finish tied.")
		return err
	}
	if manual != nil {
		for k, v := range scores {
			s.scores[k] = v
		}
	}
	s.clock.Game.Running = false
	s.clock.Shot.Running = false
	s.awaitingAwards = true
	s.winnerKey = winner
	s.finalScores = copyCounts(scores)
	s.manualFinal = manual != nil
	c.enqueueClockSyncLocked()
	c.publishLocked()
	return nil
}

// CompleteGameWithAwards finalizes a game that is awaiting awards.
func (c *Controller) CompleteGameWithAwards(awards []store.Award) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	if err := c.guardLocked(); err != nil {
		return err
	}
	if !s.awaitingAwards {
		return ErrGameNotOver
	}
	// Reconciliation may still move the score after the final horn. Unless
	// the final was entered by hand, the result follows the current score.
	if !s.manualFinal {
		winner, err := game.DecideWinner(s.scores, s.sides(), false)
		if err != nil {
			c.deps.Notifier.Warning("Tied game", "The score is now tied. Set the quarter to continue play.")
			return err
		}
		s.winnerKey = winner
		s.finalScores = copyCounts(s.scores)
	}
	s.status = game.StatusCompleted
	s.awaitingAwards = false
	s.timeoutActive = false
	status := s.status
	winner := s.winnerKey
	u := store.GameUpdate{
		Status:       &status,
		WinnerTeamID: &winner,
		Awards:       awards,
		Scores:       copyCounts(s.finalScores),
	}
	if u.Awards == nil {
		u.Awards = []store.Award{}
	}
	c.enqueueStateLocked("complete", u, func(err error) {
		if err != nil {
			c.deps.Notifier.Error("Game not saved", "The final result could not be saved.")
		}
	})
	log.Info().Str("game_id", s.gameID).Str("winner", s.winnerKey).Int("awards", len(awards)).Msg("game completed")
	c.publishLocked()
	return nil
}
