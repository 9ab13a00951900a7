package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"courtside/internal/store"
	"courtside/internal/tracker"
	"courtside/internal/writequeue"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Sessions opens, finds and closes live game sessions.
type Sessions interface {
	Open(ctx context.Context, gameID string) (*tracker.Controller, error)
	Get(gameID string) (*tracker.Controller, error)
	Close(ctx context.Context, gameID string) error
}

type SessionHandlers struct {
	sessions    Sessions
	waitTimeout time.Duration
}

func NewSessionHandlers(sessions Sessions) *SessionHandlers {
	return &SessionHandlers{sessions: sessions, waitTimeout: 15 * time.Second}
}

type sessionOp func(w http.ResponseWriter, r *http.Request, c *tracker.Controller) error

// op resolves the session for the route's game (hydrating it on first use),
// runs fn and answers with the resulting snapshot.
func (h *SessionHandlers) op(name string, fn sessionOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "game_id")
		c, err := h.sessions.Open(r.Context(), gameID)
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		metricOperationsTotal.Add(1)
		if err := fn(w, r, c); err != nil {
			log.Debug().Err(err).Str("game_id", gameID).Str("op", name).Msg("session operation rejected")
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "state": c.Snapshot()})
	}
}

// wait blocks on the write ticket only when the caller asked with ?wait=true.
func (h *SessionHandlers) wait(r *http.Request, t *writequeue.Ticket) error {
	if t == nil || r.URL.Query().Get("wait") != "true" {
		return nil
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
	defer cancel()
	_, err := t.Wait(ctx)
	return err
}

func decode(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidJSON
	}
	return nil
}

func (h *SessionHandlers) Open() http.HandlerFunc {
	return h.op("open", func(http.ResponseWriter, *http.Request, *tracker.Controller) error { return nil })
}

func (h *SessionHandlers) State() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := h.sessions.Get(chi.URLParam(r, "game_id"))
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "state": c.Snapshot()})
	}
}

func (h *SessionHandlers) Close() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.sessions.Close(r.Context(), chi.URLParam(r, "game_id")); err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *SessionHandlers) Checkpoint() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := h.sessions.Get(chi.URLParam(r, "game_id"))
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		metricBeaconsTotal.Add(1)
		if err := c.SaveClockBeforeExit(r.Context()); err != nil {
			writeTrackerError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *SessionHandlers) RecordStat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "game_id")
		var in tracker.StatInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		c, err := h.sessions.Open(r.Context(), gameID)
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		metricOperationsTotal.Add(1)
		receipt, err := c.RecordStat(in)
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		status := http.StatusAccepted
		if r.URL.Query().Get("wait") == "true" {
			if err := h.wait(r, receipt.Ticket); err != nil {
				writeTrackerError(w, err)
				return
			}
			status = http.StatusOK
		}
		writeJSON(w, status, map[string]any{"ok": true, "receipt": receipt, "state": c.Snapshot()})
	}
}

func (h *SessionHandlers) Undo() http.HandlerFunc {
	return h.op("undo", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		t, err := c.UndoLastAction()
		if err != nil {
			return err
		}
		return h.wait(r, t)
	})
}

func (h *SessionHandlers) ClearPrompt() http.HandlerFunc {
	return h.op("clear_prompt", func(_ http.ResponseWriter, _ *http.Request, c *tracker.Controller) error {
		return c.ClearPlayPrompt()
	})
}

func (h *SessionHandlers) StartClock() http.HandlerFunc {
	return h.op("start_clock", func(_ http.ResponseWriter, _ *http.Request, c *tracker.Controller) error {
		return c.StartClock()
	})
}

func (h *SessionHandlers) StopClock() http.HandlerFunc {
	return h.op("stop_clock", func(_ http.ResponseWriter, _ *http.Request, c *tracker.Controller) error {
		return c.StopClock()
	})
}

func (h *SessionHandlers) ResetClock() http.HandlerFunc {
	return h.op("reset_clock", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var req struct {
			Quarter *int `json:"quarter"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		return c.ResetClock(req.Quarter)
	})
}

func (h *SessionHandlers) SetClock() http.HandlerFunc {
	return h.op("set_clock", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var req struct {
			Minutes int `json:"minutes"`
			Seconds int `json:"seconds"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		return c.SetCustomTime(req.Minutes, req.Seconds)
	})
}

func (h *SessionHandlers) StartShotClock() http.HandlerFunc {
	return h.op("start_shot_clock", func(_ http.ResponseWriter, _ *http.Request, c *tracker.Controller) error {
		return c.StartShotClock()
	})
}

func (h *SessionHandlers) StopShotClock() http.HandlerFunc {
	return h.op("stop_shot_clock", func(_ http.ResponseWriter, _ *http.Request, c *tracker.Controller) error {
		return c.StopShotClock()
	})
}

func (h *SessionHandlers) ResetShotClock() http.HandlerFunc {
	return h.op("reset_shot_clock", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var req struct {
			Seconds *int `json:"seconds"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		return c.ResetShotClock(req.Seconds)
	})
}

func (h *SessionHandlers) SetShotClock() http.HandlerFunc {
	return h.op("set_shot_clock", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var req struct {
			Seconds int `json:"seconds"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		return c.SetShotClockTime(req.Seconds)
	})
}

func (h *SessionHandlers) ToggleShotClock() http.HandlerFunc {
	return h.op("toggle_shot_clock", func(_ http.ResponseWriter, _ *http.Request, c *tracker.Controller) error {
		return c.ToggleShotClockVisibility()
	})
}

func (h *SessionHandlers) SetQuarter() http.HandlerFunc {
	return h.op("set_quarter", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var req struct {
			Quarter int `json:"quarter"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		return c.SetQuarter(req.Quarter)
	})
}

func (h *SessionHandlers) Advance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := h.sessions.Open(r.Context(), chi.URLParam(r, "game_id"))
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		metricOperationsTotal.Add(1)
		t, err := c.AdvanceIfNeeded()
		if err != nil {
			writeTrackerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "transition": t, "state": c.Snapshot()})
	}
}

func (h *SessionHandlers) Substitute() http.HandlerFunc {
	return h.op("substitute", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var sub tracker.Substitution
		if err := decode(r, &sub); err != nil {
			return err
		}
		t, err := c.Substitute(sub)
		if err != nil {
			return err
		}
		return h.wait(r, t)
	})
}

func (h *SessionHandlers) StartTimeout() http.HandlerFunc {
	return h.op("start_timeout", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var req struct {
			TeamID string `json:"team_id"`
			Type   string `json:"timeout_type"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		t, err := c.StartTimeout(req.TeamID, req.Type)
		if err != nil {
			return err
		}
		return h.wait(r, t)
	})
}

func (h *SessionHandlers) ResumeTimeout() http.HandlerFunc {
	return h.op("resume_timeout", func(_ http.ResponseWriter, _ *http.Request, c *tracker.Controller) error {
		return c.ResumeFromTimeout()
	})
}

type teamRequest struct {
	TeamID string `json:"team_id"`
	Reason string `json:"reason"`
}

func (h *SessionHandlers) SetPossession() http.HandlerFunc {
	return h.op("set_possession", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var req teamRequest
		if err := decode(r, &req); err != nil {
			return err
		}
		return c.ManualSetPossession(req.TeamID, req.Reason)
	})
}

func (h *SessionHandlers) SetArrow() http.HandlerFunc {
	return h.op("set_arrow", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var req teamRequest
		if err := decode(r, &req); err != nil {
			return err
		}
		return c.SetPossessionArrow(req.TeamID)
	})
}

func (h *SessionHandlers) JumpBall() http.HandlerFunc {
	return h.op("jump_ball", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var req teamRequest
		if err := decode(r, &req); err != nil {
			return err
		}
		return c.RecordJumpBall(req.TeamID)
	})
}

func (h *SessionHandlers) CloseGame() http.HandlerFunc {
	return h.op("close_game", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var req struct {
			FinalScores map[string]int `json:"final_scores"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		return c.CloseGame(req.FinalScores)
	})
}

func (h *SessionHandlers) Complete() http.HandlerFunc {
	return h.op("complete", func(_ http.ResponseWriter, r *http.Request, c *tracker.Controller) error {
		var req struct {
			Awards []store.Award `json:"awards"`
		}
		if err := decode(r, &req); err != nil {
			return err
		}
		return c.CompleteGameWithAwards(req.Awards)
	})
}
