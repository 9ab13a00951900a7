package store

import (
	"context"
	"errors"

	"courtside/internal/game"

	"github.com/jackc/pgx/v5"
)

func (s *Store) RecordTimeout(ctx context.Context, rec TimeoutRecord) (TimeoutRecord, error) {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	err := s.Pool.QueryRow(ctx, `INSERT INTO game_timeouts (id, idempotency_key, game_id, team_id, timeout_type, quarter, game_time_seconds)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING created_at`,
		rec.ID, rec.IdempotencyKey, rec.GameID, rec.TeamID, rec.Type, rec.Quarter, rec.GameTimeSecs).Scan(&rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, ErrDuplicateKey
	}
	return rec, err
}

// RecordSubstitution stores the substitution and swaps the two players'
// on-court flags in one transaction.
func (s *Store) RecordSubstitution(ctx context.Context, rec SubstitutionRecord) (SubstitutionRecord, error) {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return rec, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `INSERT INTO game_substitutions (id, idempotency_key, game_id, team_id, player_out_id, player_in_id, quarter, game_time_seconds)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING created_at`,
		rec.ID, rec.IdempotencyKey, rec.GameID, rec.TeamID, rec.PlayerOutID, rec.PlayerInID, rec.Quarter, rec.GameTimeSecs).Scan(&rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, ErrDuplicateKey
	}
	if err != nil {
		return rec, err
	}
	if _, err := tx.Exec(ctx, `UPDATE game_rosters SET on_court = (player_id = $3)
		WHERE game_id = $1 AND team_id = $2 AND player_id IN ($3, $4)`,
		rec.GameID, rec.TeamID, rec.PlayerInID, rec.PlayerOutID); err != nil {
		return rec, err
	}
	return rec, tx.Commit(ctx)
}

// SetRoster replaces a team's roster for a game.
func (s *Store) SetRoster(ctx context.Context, gameID string, r game.RosterState) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM game_rosters WHERE game_id = $1 AND team_id = $2`, gameID, r.TeamID); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, p := range r.OnCourt {
		batch.Queue(`INSERT INTO game_rosters (game_id, team_id, player_id, on_court) VALUES ($1,$2,$3,true)`, gameID, r.TeamID, p)
	}
	for _, p := range r.Bench {
		batch.Queue(`INSERT INTO game_rosters (game_id, team_id, player_id, on_court) VALUES ($1,$2,$3,false)`, gameID, r.TeamID, p)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetRosters(ctx context.Context, gameID string) (map[string]game.RosterState, error) {
	rows, err := s.Pool.Query(ctx, `SELECT team_id, player_id, on_court FROM game_rosters WHERE game_id = $1 ORDER BY team_id, player_id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]game.RosterState{}
	for rows.Next() {
		var (
			teamID, playerID string
			onCourt          bool
		)
		if err := rows.Scan(&teamID, &playerID, &onCourt); err != nil {
			return nil, err
		}
		r := out[teamID]
		r.TeamID = teamID
		if onCourt {
			r.OnCourt = append(r.OnCourt, playerID)
		} else {
			r.Bench = append(r.Bench, playerID)
		}
		out[teamID] = r
	}
	return out, rows.Err()
}
