package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

func (s *Store) CreateTournament(ctx context.Context, t Tournament) (string, error) {
	id := t.ID
	if id == "" {
		id = NewID()
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO tournaments (id, name, ruleset, automation_clock, automation_possession, automation_sequences)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		id, t.Name, t.Ruleset, boolPtrParam(t.AutomationClock), boolPtrParam(t.AutomationPossession), boolPtrParam(t.AutomationSequences))
	return id, err
}

func (s *Store) TournamentRules(ctx context.Context, tournamentID string) (RuleSource, error) {
	var (
		src           RuleSource
		clk, pos, seq pgtype.Bool
	)
	err := s.Pool.QueryRow(ctx, `SELECT ruleset, automation_clock, automation_possession, automation_sequences
		FROM tournaments WHERE id = $1`, tournamentID).Scan(&src.Ruleset, &clk, &pos, &seq)
	if err != nil {
		return RuleSource{}, mapNotFound(err)
	}
	src.AutomationClock, src.AutomationPossession, src.AutomationSequences = boolPtrVal(clk), boolPtrVal(pos), boolPtrVal(seq)
	return src, nil
}

func (s *Store) GameRuleOverride(ctx context.Context, gameID string) (RuleSource, error) {
	var (
		src           RuleSource
		clk, pos, seq pgtype.Bool
	)
	err := s.Pool.QueryRow(ctx, `SELECT ruleset, automation_clock, automation_possession, automation_sequences
		FROM game_rule_overrides WHERE game_id = $1`, gameID).Scan(&src.Ruleset, &clk, &pos, &seq)
	if err != nil {
		return RuleSource{}, mapNotFound(err)
	}
	src.AutomationClock, src.AutomationPossession, src.AutomationSequences = boolPtrVal(clk), boolPtrVal(pos), boolPtrVal(seq)
	return src, nil
}

func (s *Store) SetGameRuleOverride(ctx context.Context, gameID string, src RuleSource) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO game_rule_overrides (game_id, ruleset, automation_clock, automation_possession, automation_sequences)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (game_id) DO UPDATE SET ruleset = EXCLUDED.ruleset,
			automation_clock = EXCLUDED.automation_clock,
			automation_possession = EXCLUDED.automation_possession,
			automation_sequences = EXCLUDED.automation_sequences`,
		gameID, src.Ruleset, boolPtrParam(src.AutomationClock), boolPtrParam(src.AutomationPossession), boolPtrParam(src.AutomationSequences))
	return err
}
