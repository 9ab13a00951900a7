package tracker

import (
	"errors"

	"courtside/internal/game"
)

var (
	ErrGameEnded           = errors.New("game_ended")
	ErrInvalidQuarter      = errors.New("invalid_quarter")
	ErrInvalidStat         = game.ErrInvalidStat
	ErrInvalidClockValue   = errors.New("invalid_clock_value")
	ErrNoTimeoutsRemaining = errors.New("no_timeouts_remaining")
	ErrTimeoutActive       = errors.New("timeout_active")
	ErrNoTimeoutActive     = errors.New("no_timeout_active")
	ErrNothingToUndo       = errors.New("nothing_to_undo")
	ErrTiedGame            = game.ErrTiedGame
	ErrGameNotOver         = errors.New("game_not_over")
	ErrInvalidSubstitution = errors.New("invalid_substitution")
	ErrInvalidTeam         = errors.New("invalid_team")
	ErrSessionNotFound     = errors.New("session_not_found")
	ErrScoreOverride       = errors.New("score_override_not_allowed")
	ErrNoOpenPrompt        = errors.New("no_open_prompt")
	ErrAwaitingAwards      = errors.New("awaiting_awards")
)
