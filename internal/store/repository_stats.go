package store

import (
	"context"
	"errors"

	"courtside/internal/game"

	"github.com/jackc/pgx/v5"
)

const statColumns = `id, idempotency_key, game_id, team_id, player_id, custom_player_id, is_opponent_stat,
	stat_type, modifier, stat_value, quarter, game_time_seconds, sequence_id, COALESCE(linked_event_id, ''), created_at`

// RecordStat inserts a stat keyed by its idempotency key. A replay of an
// already stored key inserts nothing and returns the stored row together
// with ErrDuplicateKey.
func (s *Store) RecordStat(ctx context.Context, in StatInsert) (game.StatEvent, error) {
	ev := in.Event
	if ev.IdempotencyKey == "" {
		return game.StatEvent{}, errors.New("idempotency_key_required")
	}
	id := ev.ID
	if id == "" {
		id = NewID()
	}
	row := s.Pool.QueryRow(ctx, `INSERT INTO game_stats (id, idempotency_key, game_id, team_id, player_id,
		custom_player_id, is_opponent_stat, stat_type, modifier, stat_value, quarter, game_time_seconds,
		sequence_id, linked_event_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,
			COALESCE($14, (SELECT id FROM game_stats WHERE idempotency_key = $15)))
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING `+statColumns,
		id, ev.IdempotencyKey, ev.GameID, ev.TeamID, ev.PlayerID, ev.CustomPlayerID, ev.IsOpponentStat,
		string(ev.StatType), string(ev.Modifier), ev.StatValue, ev.Quarter, ev.GameTimeSecs, ev.SequenceID,
		textParam(ev.LinkedEventID), textParam(in.LinkedEventKey))
	out, err := scanStat(row)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := s.GetStatByKey(ctx, ev.IdempotencyKey)
		if getErr != nil {
			return game.StatEvent{}, getErr
		}
		return existing, ErrDuplicateKey
	}
	return out, err
}

func (s *Store) GetStatByKey(ctx context.Context, key string) (game.StatEvent, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+statColumns+` FROM game_stats WHERE idempotency_key = $1`, key)
	ev, err := scanStat(row)
	return ev, mapNotFound(err)
}

func (s *Store) DeleteStat(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM game_stats WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetGameStats returns the full event log of a game in recording order.
func (s *Store) GetGameStats(ctx context.Context, gameID string) ([]game.StatEvent, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+statColumns+` FROM game_stats WHERE game_id = $1 ORDER BY created_at, id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []game.StatEvent
	for rows.Next() {
		ev, err := scanStat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanStat(row pgx.Row) (game.StatEvent, error) {
	var (
		ev       game.StatEvent
		statType string
		modifier string
	)
	err := row.Scan(&ev.ID, &ev.IdempotencyKey, &ev.GameID, &ev.TeamID, &ev.PlayerID, &ev.CustomPlayerID,
		&ev.IsOpponentStat, &statType, &modifier, &ev.StatValue, &ev.Quarter, &ev.GameTimeSecs,
		&ev.SequenceID, &ev.LinkedEventID, &ev.CreatedAt)
	ev.StatType = game.StatType(statType)
	ev.Modifier = game.Modifier(modifier)
	return ev, err
}
