package store

import (
	"errors"
	"testing"

	"courtside/internal/game"
)

func TestRecordStatIsIdempotent(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	gameID := mustCreateGame(t, st, ctx, "A", "B")
	ev := game.StatEvent{
		IdempotencyKey: NewID(),
		GameID:         gameID,
		TeamID:         "A",
		PlayerID:       "p1",
		StatType:       game.StatFieldGoal,
		Modifier:       game.ModifierMade,
		StatValue:      2,
		Quarter:        1,
		GameTimeSecs:   700,
	}
	first, err := st.RecordStat(ctx, StatInsert{Event: ev})
	if err != nil {
		t.Fatalf("record stat: %v", err)
	}
	second, err := st.RecordStat(ctx, StatInsert{Event: ev})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey on replay, got %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected replay to return stored row %s, got %s", first.ID, second.ID)
	}
	stats, err := st.GetGameStats(ctx, gameID)
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one stored stat, got %d", len(stats))
	}
	if got := game.ProjectScores(stats, false)["A"]; got != 2 {
		t.Fatalf("expected projected score 2, got %d", got)
	}
}

func TestRecordStatResolvesLinkedKey(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	gameID := mustCreateGame(t, st, ctx, "A", "B")
	primaryKey := NewID()
	primary, err := st.RecordStat(ctx, StatInsert{Event: game.StatEvent{
		IdempotencyKey: primaryKey, GameID: gameID, TeamID: "A", StatType: game.StatFieldGoal,
		Modifier: game.ModifierMade, StatValue: 2, Quarter: 1,
	}})
	if err != nil {
		t.Fatalf("record primary: %v", err)
	}
	assist, err := st.RecordStat(ctx, StatInsert{
		Event: game.StatEvent{
			IdempotencyKey: NewID(), GameID: gameID, TeamID: "A", PlayerID: "p2", StatType: game.StatAssist,
			StatValue: 1, Quarter: 1, SequenceID: primaryKey,
		},
		LinkedEventKey: primaryKey,
	})
	if err != nil {
		t.Fatalf("record assist: %v", err)
	}
	if assist.LinkedEventID != primary.ID {
		t.Fatalf("expected link to %s, got %q", primary.ID, assist.LinkedEventID)
	}
	if err := st.DeleteStat(ctx, primary.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteStat(ctx, primary.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUpdateGameStateAndClock(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	gameID := mustCreateGame(t, st, ctx, "A", "B")
	status := game.StatusInProgress
	quarter := 2
	team := "B"
	if err := st.UpdateGameState(ctx, gameID, GameUpdate{
		Status:           &status,
		Quarter:          &quarter,
		Scores:           map[string]int{"A": 10, "B": 8},
		TeamFouls:        map[string]int{"A": 0, "B": 0},
		PossessionTeamID: &team,
	}); err != nil {
		t.Fatalf("update state: %v", err)
	}
	if err := st.UpdateGameClock(ctx, gameID, ClockUpdate{Minutes: 4, Seconds: 31}); err != nil {
		t.Fatalf("update clock: %v", err)
	}
	g, err := st.GetGame(ctx, gameID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if g.Status != status || g.Quarter != 2 || g.Scores["A"] != 10 || g.PossessionTeamID != "B" {
		t.Fatalf("unexpected game %+v", g)
	}
	if g.ClockTotalSeconds() != 271 || g.ClockRunning {
		t.Fatalf("unexpected clock %d running=%v", g.ClockTotalSeconds(), g.ClockRunning)
	}
	if err := st.UpdateGameClock(ctx, "missing", ClockUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubstitutionSwapsRoster(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	gameID := mustCreateGame(t, st, ctx, "A", "B")
	if err := st.SetRoster(ctx, gameID, game.RosterState{
		TeamID:  "A",
		OnCourt: []string{"p1", "p2", "p3", "p4", "p5"},
		Bench:   []string{"p6"},
	}); err != nil {
		t.Fatalf("set roster: %v", err)
	}
	rec := SubstitutionRecord{IdempotencyKey: NewID(), GameID: gameID, TeamID: "A", PlayerOutID: "p1", PlayerInID: "p6", Quarter: 1}
	if _, err := st.RecordSubstitution(ctx, rec); err != nil {
		t.Fatalf("record substitution: %v", err)
	}
	if _, err := st.RecordSubstitution(ctx, rec); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	rosters, err := st.GetRosters(ctx, gameID)
	if err != nil {
		t.Fatalf("get rosters: %v", err)
	}
	r := rosters["A"]
	if !r.IsOnCourt("p6") || !r.IsOnBench("p1") || len(r.OnCourt) != 5 {
		t.Fatalf("unexpected roster %+v", r)
	}
}

func TestRuleSources(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	off := false
	tid, err := st.CreateTournament(ctx, Tournament{Name: "Spring", RuleSource: RuleSource{Ruleset: "fiba", AutomationSequences: &off}})
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	src, err := st.TournamentRules(ctx, tid)
	if err != nil {
		t.Fatalf("tournament rules: %v", err)
	}
	if src.Ruleset != "fiba" || src.AutomationSequences == nil || *src.AutomationSequences || src.AutomationClock != nil {
		t.Fatalf("unexpected source %+v", src)
	}
	gameID := mustCreateGame(t, st, ctx, "A", "B")
	if _, err := st.GameRuleOverride(ctx, gameID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no override, got %v", err)
	}
	if err := st.SetGameRuleOverride(ctx, gameID, RuleSource{Ruleset: "ncaa"}); err != nil {
		t.Fatalf("set override: %v", err)
	}
	src, err = st.GameRuleOverride(ctx, gameID)
	if err != nil || src.Ruleset != "ncaa" {
		t.Fatalf("unexpected override %+v %v", src, err)
	}
}
