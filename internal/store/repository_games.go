package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"courtside/internal/game"

	"github.com/jackc/pgx/v5"
)

const gameColumns = `id, COALESCE(tournament_id, ''), home_team_id, away_team_id, status, quarter,
	quarter_length_minutes, clock_minutes, clock_seconds, clock_running, shot_clock_seconds,
	shot_clock_visible, scores, team_fouls, team_timeouts, possession_team_id, possession_arrow,
	winner_team_id, awards, created_at, updated_at`

func (s *Store) CreateGame(ctx context.Context, in NewGame) (string, error) {
	id := in.ID
	if id == "" {
		id = NewID()
	}
	if in.QuarterLengthMinutes <= 0 {
		in.QuarterLengthMinutes = 12
	}
	if in.ShotClockSeconds <= 0 {
		in.ShotClockSeconds = 24
	}
	timeouts, err := jsonParam(in.TeamTimeouts)
	if err != nil {
		return "", err
	}
	_, err = s.Pool.Exec(ctx, `INSERT INTO games (id, tournament_id, home_team_id, away_team_id,
		quarter_length_minutes, clock_minutes, shot_clock_seconds, team_timeouts)
		VALUES ($1,$2,$3,$4,$5,$5,$6,$7)`,
		id, textParam(in.TournamentID), in.HomeTeamID, in.AwayTeamID, in.QuarterLengthMinutes, in.ShotClockSeconds, timeouts)
	return id, err
}

func (s *Store) GetGame(ctx context.Context, id string) (*Game, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
	g, err := scanGame(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return g, nil
}

func (s *Store) ListGames(ctx context.Context, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+gameColumns+` FROM games ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGameClock(ctx context.Context, id string, c ClockUpdate) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE games SET clock_minutes = $2, clock_seconds = $3, clock_running = $4,
		shot_clock_seconds = COALESCE($5, shot_clock_seconds), updated_at = now() WHERE id = $1`,
		id, c.Minutes, c.Seconds, c.Running, int4PtrParam(c.ShotClockSeconds))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateGameState writes the non-nil fields of u in one statement.
func (s *Store) UpdateGameState(ctx context.Context, id string, u GameUpdate) error {
	sets := []string{}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.Quarter != nil {
		add("quarter", *u.Quarter)
	}
	if u.Clock != nil {
		add("clock_minutes", u.Clock.Minutes)
		add("clock_seconds", u.Clock.Seconds)
		add("clock_running", u.Clock.Running)
		if u.Clock.ShotClockSeconds != nil {
			add("shot_clock_seconds", *u.Clock.ShotClockSeconds)
		}
	}
	for col, m := range map[string]map[string]int{"scores": u.Scores, "team_fouls": u.TeamFouls, "team_timeouts": u.TeamTimeouts} {
		if m == nil {
			continue
		}
		b, err := jsonParam(m)
		if err != nil {
			return err
		}
		add(col, b)
	}
	if u.PossessionTeamID != nil {
		add("possession_team_id", *u.PossessionTeamID)
	}
	if u.PossessionArrow != nil {
		add("possession_arrow", *u.PossessionArrow)
	}
	if u.ShotClockVisible != nil {
		add("shot_clock_visible", *u.ShotClockVisible)
	}
	if u.WinnerTeamID != nil {
		add("winner_team_id", *u.WinnerTeamID)
	}
	if u.Awards != nil {
		b, err := json.Marshal(u.Awards)
		if err != nil {
			return err
		}
		add("awards", b)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = now()")
	tag, err := s.Pool.Exec(ctx, `UPDATE games SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanGame(row pgx.Row) (*Game, error) {
	var (
		g                           Game
		status                      string
		scores, fouls, timeouts, aw []byte
	)
	if err := row.Scan(&g.ID, &g.TournamentID, &g.HomeTeamID, &g.AwayTeamID, &status, &g.Quarter,
		&g.QuarterLengthMinutes, &g.ClockMinutes, &g.ClockSeconds, &g.ClockRunning, &g.ShotClockSeconds,
		&g.ShotClockVisible, &scores, &fouls, &timeouts, &g.PossessionTeamID, &g.PossessionArrow,
		&g.WinnerTeamID, &aw, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.Status = game.GameStatus(status)
	g.Scores = intMap(scores)
	g.TeamFouls = intMap(fouls)
	g.TeamTimeouts = intMap(timeouts)
	_ = json.Unmarshal(aw, &g.Awards)
	return &g, nil
}
