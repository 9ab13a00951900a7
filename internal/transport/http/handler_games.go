package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"courtside/internal/game"
	"courtside/internal/store"

	"github.com/go-chi/chi/v5"
)

// Catalog is the persistent game and tournament setup the operator UI reads.
type Catalog interface {
	Ping(ctx context.Context) error
	CreateGame(ctx context.Context, in store.NewGame) (string, error)
	GetGame(ctx context.Context, id string) (*store.Game, error)
	ListGames(ctx context.Context, limit int) ([]store.Game, error)
	GetGameStats(ctx context.Context, gameID string) ([]game.StatEvent, error)
	SetRoster(ctx context.Context, gameID string, r game.RosterState) error
	CreateTournament(ctx context.Context, t store.Tournament) (string, error)
	SetGameRuleOverride(ctx context.Context, gameID string, src store.RuleSource) error
}

type GameHandlers struct {
	catalog Catalog
}

func NewGameHandlers(catalog Catalog) *GameHandlers {
	return &GameHandlers{catalog: catalog}
}

func (h *GameHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.catalog.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "db_unavailable"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func (h *GameHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.catalog.ListGames(r.Context(), ParseLimit(r))
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *GameHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := h.catalog.GetGame(r.Context(), chi.URLParam(r, "game_id"))
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func (h *GameHandlers) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := h.catalog.GetGameStats(r.Context(), chi.URLParam(r, "game_id"))
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

type createGameRequest struct {
	TournamentID         string         `json:"tournament_id"`
	HomeTeamID           string         `json:"home_team_id"`
	AwayTeamID           string         `json:"away_team_id"`
	QuarterLengthMinutes int            `json:"quarter_length_minutes"`
	ShotClockSeconds     int            `json:"shot_clock_seconds"`
	TeamTimeouts         map[string]int `json:"team_timeouts"`
}

func (h *GameHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.HomeTeamID == "" || req.AwayTeamID == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if req.QuarterLengthMinutes < 0 || req.ShotClockSeconds < 0 || req.ShotClockSeconds > game.MaxShotClockSeconds {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		id, err := h.catalog.CreateGame(r.Context(), store.NewGame{
			TournamentID:         req.TournamentID,
			HomeTeamID:           req.HomeTeamID,
			AwayTeamID:           req.AwayTeamID,
			QuarterLengthMinutes: req.QuarterLengthMinutes,
			ShotClockSeconds:     req.ShotClockSeconds,
			TeamTimeouts:         req.TeamTimeouts,
		})
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "game_id": id})
	}
}

func (h *GameHandlers) SetRoster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.RosterState
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.TeamID == "" || len(req.OnCourt) > game.OnCourtSize {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_roster")
			return
		}
		if err := h.catalog.SetRoster(r.Context(), chi.URLParam(r, "game_id"), req); err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

type ruleSourceRequest struct {
	Ruleset              string `json:"ruleset"`
	AutomationClock      *bool  `json:"automation_clock"`
	AutomationPossession *bool  `json:"automation_possession"`
	AutomationSequences  *bool  `json:"automation_sequences"`
}

func (req ruleSourceRequest) source() store.RuleSource {
	return store.RuleSource{
		Ruleset:              req.Ruleset,
		AutomationClock:      req.AutomationClock,
		AutomationPossession: req.AutomationPossession,
		AutomationSequences:  req.AutomationSequences,
	}
}

func (h *GameHandlers) SetRules() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ruleSourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if err := h.catalog.SetGameRuleOverride(r.Context(), chi.URLParam(r, "game_id"), req.source()); err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *GameHandlers) CreateTournament() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
			ruleSourceRequest
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.Name == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		id, err := h.catalog.CreateTournament(r.Context(), store.Tournament{Name: req.Name, RuleSource: req.source()})
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "tournament_id": id})
	}
}
