package httptransport

import (
	"context"
	"errors"
	"net/http"

	"courtside/internal/ruleset"
	"courtside/internal/store"
	"courtside/internal/tracker"
)

var errInvalidJSON = errors.New("invalid_json")

// MapTrackerError turns a session or store error into a status and code.
func MapTrackerError(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidJSON):
		return http.StatusBadRequest, "invalid_json"
	case errors.Is(err, tracker.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "game_not_found"
	case errors.Is(err, tracker.ErrGameEnded):
		return http.StatusConflict, "game_ended"
	case errors.Is(err, tracker.ErrTimeoutActive),
		errors.Is(err, tracker.ErrNoTimeoutActive),
		errors.Is(err, tracker.ErrNoTimeoutsRemaining),
		errors.Is(err, tracker.ErrNothingToUndo),
		errors.Is(err, tracker.ErrGameNotOver),
		errors.Is(err, tracker.ErrTiedGame),
		errors.Is(err, tracker.ErrNoOpenPrompt),
		errors.Is(err, tracker.ErrAwaitingAwards):
		return http.StatusConflict, err.Error()
	case errors.Is(err, tracker.ErrInvalidQuarter),
		errors.Is(err, tracker.ErrInvalidStat),
		errors.Is(err, tracker.ErrInvalidClockValue),
		errors.Is(err, tracker.ErrInvalidSubstitution),
		errors.Is(err, tracker.ErrInvalidTeam),
		errors.Is(err, tracker.ErrScoreOverride):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "write_pending"
	case errors.Is(err, ruleset.ErrUnknownRuleset):
		return http.StatusUnprocessableEntity, "unknown_ruleset"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeTrackerError(w http.ResponseWriter, err error) {
	status, code := MapTrackerError(err)
	if status == http.StatusInternalServerError {
		metricRequestErrors.Add(1)
	}
	WriteHTTPError(w, status, code)
}
