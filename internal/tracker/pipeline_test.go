package tracker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"courtside/internal/game"
)

func madeTwo(team string) StatInput {
	return StatInput{TeamID: team, PlayerID: "p1", StatType: game.StatFieldGoal, Modifier: game.ModifierMade}
}

func TestRecordStatIsOptimisticBeforeWriteResolves(t *testing.T) {
	st := newFakeStore(baseGame())
	seedMadeShots(st, "A", 5)
	st.gate = make(chan struct{})
	c := openTest(t, st, &fakeNotifier{})

	rcpt, err := c.RecordStat(madeTwo("A"))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := c.Snapshot().Scores["A"]; got != 12 {
		t.Fatalf("expected optimistic score 12, got %d", got)
	}
	select {
	case <-rcpt.Ticket.Done():
		t.Fatalf("write settled before the store answered")
	default:
	}
	close(st.gate)
	flush(t, c)
	if got := c.Snapshot().Scores["A"]; got != 12 {
		t.Fatalf("expected score 12 after write, got %d", got)
	}
	if rcpt.StatValue != 2 {
		t.Fatalf("expected stat value 2, got %d", rcpt.StatValue)
	}
}

func TestRecordStatRollsBackOnWriteFailure(t *testing.T) {
	st := newFakeStore(baseGame())
	seedMadeShots(st, "A", 5)
	st.failStats = true
	n := &fakeNotifier{}
	c := openTest(t, st, n)

	if _, err := c.RecordStat(madeTwo("A")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := c.Snapshot().Scores["A"]; got != 12 {
		t.Fatalf("expected optimistic score 12, got %d", got)
	}
	flush(t, c)
	snap := c.Snapshot()
	if snap.Scores["A"] != 10 {
		t.Fatalf("expected rollback to 10, got %d", snap.Scores["A"])
	}
	if n.count("error") != 1 {
		t.Fatalf("expected one error notification, got %d", n.count("error"))
	}
	if snap.CanUndo {
		t.Fatalf("a rolled back stat must not be undoable")
	}
}

func TestRollbackLeavesClockAndPossessionEffects(t *testing.T) {
	st := newFakeStore(baseGame())
	st.failStats = true
	c := openTest(t, st, &fakeNotifier{})
	if err := c.StartClock(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := c.RecordStat(StatInput{TeamID: "A", StatType: game.StatFoul, Modifier: game.ModifierPersonal}); err != nil {
		t.Fatalf("record: %v", err)
	}
	flush(t, c)
	snap := c.Snapshot()
	if snap.TeamFouls["A"] != 0 {
		t.Fatalf("expected foul rolled back, got %d", snap.TeamFouls["A"])
	}
	if snap.Clock.Running {
		t.Fatalf("the foul's clock stoppage should survive the rollback")
	}
}

func TestUndoRestoresExactTallies(t *testing.T) {
	st := newFakeStore(baseGame())
	c := openTest(t, st, &fakeNotifier{})
	if _, err := c.RecordStat(madeTwo("B")); err != nil {
		t.Fatalf("record: %v", err)
	}
	flush(t, c)
	if err := c.ClearPlayPrompt(); err != nil {
		t.Fatalf("clear assist prompt: %v", err)
	}
	before := c.Snapshot()

	if _, err := c.RecordStat(StatInput{TeamID: "A", StatType: game.StatFoul, Modifier: game.ModifierShooting}); err != nil {
		t.Fatalf("record foul: %v", err)
	}
	if _, err := c.UndoLastAction(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	flush(t, c)
	after := c.Snapshot()
	for _, k := range []string{"A", "B"} {
		if after.Scores[k] != before.Scores[k] || after.TeamFouls[k] != before.TeamFouls[k] {
			t.Fatalf("team %s: tallies %d/%d, want %d/%d", k, after.Scores[k], after.TeamFouls[k], before.Scores[k], before.TeamFouls[k])
		}
	}
	if st.statCount() != 1 {
		t.Fatalf("expected the undone foul to be deleted, %d stats stored", st.statCount())
	}
	if after.Prompt != nil {
		t.Fatalf("undo should drop the free throw prompt")
	}
	if _, err := c.UndoLastAction(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestBackToBackWritesCompleteInCallOrder(t *testing.T) {
	st := newFakeStore(baseGame())
	st.delay = 2 * time.Millisecond
	c := openTest(t, st, &fakeNotifier{})

	var keys []string
	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("k-%d", i)
		keys = append(keys, key)
		in := madeTwo("A")
		in.IdempotencyKey = key
		if _, err := c.RecordStat(in); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	flush(t, c)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.maxInFlight != 1 {
		t.Fatalf("expected one write in flight at a time, saw %d", st.maxInFlight)
	}
	for i, key := range keys {
		if st.order[i] != key {
			t.Fatalf("write %d: got %s want %s", i, st.order[i], key)
		}
	}
}

func TestReplayedKeyIsNotDoubleCounted(t *testing.T) {
	st := newFakeStore(baseGame())
	c := openTest(t, st, &fakeNotifier{})
	in := madeTwo("A")
	in.IdempotencyKey = "same-key"
	if _, err := c.RecordStat(in); err != nil {
		t.Fatalf("record: %v", err)
	}
	flush(t, c)
	if _, err := c.RecordStat(in); err != nil {
		t.Fatalf("replay: %v", err)
	}
	flush(t, c)
	if st.statCount() != 1 {
		t.Fatalf("expected a single stored event, got %d", st.statCount())
	}
	if got := c.Snapshot().Scores["A"]; got != 2 {
		t.Fatalf("expected score 2, got %d", got)
	}
}

func TestUndoOfReplayKeepsOriginalEvent(t *testing.T) {
	st := newFakeStore(baseGame())
	c := openTest(t, st, &fakeNotifier{})
	in := madeTwo("A")
	in.IdempotencyKey = "k1"
	if _, err := c.RecordStat(in); err != nil {
		t.Fatalf("record: %v", err)
	}
	flush(t, c)

	gate := make(chan struct{})
	st.mu.Lock()
	st.gate = gate
	st.mu.Unlock()
	if _, err := c.RecordStat(in); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if _, err := c.UndoLastAction(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	close(gate)
	flush(t, c)

	if st.statCount() != 1 {
		t.Fatalf("expected the original event to stay stored, got %d", st.statCount())
	}
	st.mu.Lock()
	deleted := len(st.deleted)
	st.mu.Unlock()
	if deleted != 0 {
		t.Fatalf("undo of a replay deleted %d events", deleted)
	}
	if got := c.Snapshot().Scores["A"]; got != 2 {
		t.Fatalf("expected score 2, got %d", got)
	}
}

func TestAbsorbedReplayClearsLastAction(t *testing.T) {
	st := newFakeStore(baseGame())
	c := openTest(t, st, &fakeNotifier{})
	in := madeTwo("A")
	in.IdempotencyKey = "k1"
	for i := 0; i < 2; i++ {
		if _, err := c.RecordStat(in); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		flush(t, c)
	}
	if got := c.Snapshot().LastAction; got != "" {
		t.Fatalf("last action should be cleared with the replay, got %q", got)
	}
	if _, err := c.UndoLastAction(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestFailedUndoPersistsRestoredScore(t *testing.T) {
	st := newFakeStore(baseGame())
	n := &fakeNotifier{}
	c := openTest(t, st, n)
	if _, err := c.RecordStat(madeTwo("A")); err != nil {
		t.Fatalf("record: %v", err)
	}
	flush(t, c)
	st.mu.Lock()
	st.failDeletes = true
	st.mu.Unlock()

	if _, err := c.UndoLastAction(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	flush(t, c)
	snap := c.Snapshot()
	if snap.Scores["A"] != 2 || snap.LastAction == "" {
		t.Fatalf("failed undo should restore the stat: %+v", snap)
	}
	if n.count("error") != 1 {
		t.Fatalf("expected an undo failure notification")
	}
	st.mu.Lock()
	var last map[string]int
	for _, u := range st.updates {
		if u.Scores != nil {
			last = u.Scores
		}
	}
	st.mu.Unlock()
	if last["A"] != 2 {
		t.Fatalf("stored score should match the restored tally, got %v", last)
	}

	st.mu.Lock()
	st.failDeletes = false
	st.mu.Unlock()
	if _, err := c.UndoLastAction(); err != nil {
		t.Fatalf("second undo: %v", err)
	}
	flush(t, c)
	if st.statCount() != 0 || c.Snapshot().Scores["A"] != 0 {
		t.Fatalf("second undo should remove the stat")
	}
}

func TestRecordStatRejectsInvalidInput(t *testing.T) {
	st := newFakeStore(baseGame())
	c := openTest(t, st, &fakeNotifier{})
	if _, err := c.RecordStat(StatInput{TeamID: "A", StatType: game.StatFieldGoal}); !errors.Is(err, ErrInvalidStat) {
		t.Fatalf("expected ErrInvalidStat, got %v", err)
	}
	if _, err := c.RecordStat(StatInput{TeamID: "Z", StatType: game.StatSteal}); !errors.Is(err, ErrInvalidTeam) {
		t.Fatalf("expected ErrInvalidTeam, got %v", err)
	}
	flush(t, c)
	if st.statCount() != 0 {
		t.Fatalf("rejected stats must not be written")
	}
}

func TestPromptResponseLinksToPrimaryEvent(t *testing.T) {
	st := newFakeStore(baseGame())
	c := openTest(t, st, &fakeNotifier{})
	miss := StatInput{TeamID: "A", StatType: game.StatFieldGoal, Modifier: game.ModifierMissed, IdempotencyKey: "miss-1"}
	if _, err := c.RecordStat(miss); err != nil {
		t.Fatalf("record miss: %v", err)
	}
	p := c.Snapshot().Prompt
	if p == nil || p.Type != game.PromptRebound {
		t.Fatalf("expected an open rebound prompt, got %+v", p)
	}
	reb := StatInput{TeamID: "B", StatType: game.StatRebound, Modifier: game.ModifierDefensive, PromptResponse: true, IdempotencyKey: "reb-1"}
	if _, err := c.RecordStat(reb); err != nil {
		t.Fatalf("record rebound: %v", err)
	}
	flush(t, c)
	snap := c.Snapshot()
	if snap.Prompt != nil {
		t.Fatalf("prompt should close after the response")
	}
	if snap.Possession.CurrentTeamID != "B" {
		t.Fatalf("defensive rebound should give B the ball, got %q", snap.Possession.CurrentTeamID)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.links["reb-1"] != "miss-1" {
		t.Fatalf("rebound not linked to the missed shot: %v", st.links)
	}
	if st.stats[1].SequenceID != "miss-1" || st.stats[1].LinkedEventID != st.stats[0].ID {
		t.Fatalf("unexpected rebound linkage %+v", st.stats[1])
	}
}

func TestFreeThrowPromptCountsDownAttempts(t *testing.T) {
	st := newFakeStore(baseGame())
	c := openTest(t, st, &fakeNotifier{})
	if _, err := c.RecordStat(StatInput{TeamID: "A", StatType: game.StatFoul, Modifier: game.ModifierShooting}); err != nil {
		t.Fatalf("foul: %v", err)
	}
	p := c.Snapshot().Prompt
	if p == nil || p.Type != game.PromptFreeThrow {
		t.Fatalf("expected a free throw prompt, got %+v", p)
	}
	ft := StatInput{TeamID: "B", StatType: game.StatFreeThrow, Modifier: game.ModifierMade, PromptResponse: true}
	if _, err := c.RecordStat(ft); err != nil {
		t.Fatalf("ft1: %v", err)
	}
	if c.Snapshot().Prompt == nil {
		t.Fatalf("prompt should stay open for the second attempt")
	}
	if _, err := c.RecordStat(ft); err != nil {
		t.Fatalf("ft2: %v", err)
	}
	snap := c.Snapshot()
	if snap.Prompt != nil {
		t.Fatalf("prompt should close after the final attempt")
	}
	if snap.Scores["B"] != 2 {
		t.Fatalf("expected 2 points from free throws, got %d", snap.Scores["B"])
	}
	if snap.Possession.CurrentTeamID != "A" {
		t.Fatalf("made final free throw should hand A the ball, got %q", snap.Possession.CurrentTeamID)
	}
	flush(t, c)
}

func TestGuardRejectsCompletedGame(t *testing.T) {
	g := baseGame()
	g.Status = game.StatusCompleted
	st := newFakeStore(g)
	n := &fakeNotifier{}
	c := openTest(t, st, n)
	if _, err := c.RecordStat(madeTwo("A")); !errors.Is(err, ErrGameEnded) {
		t.Fatalf("expected ErrGameEnded, got %v", err)
	}
	if err := c.StartClock(); !errors.Is(err, ErrGameEnded) {
		t.Fatalf("expected ErrGameEnded, got %v", err)
	}
	if n.count("warning") != 2 {
		t.Fatalf("expected warnings, got %d", n.count("warning"))
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if st.statCount() != 0 {
		t.Fatalf("nothing should be written for a completed game")
	}
}

func TestCoachModeOpponentStatsRollUp(t *testing.T) {
	g := baseGame()
	g.AwayTeamID = "A"
	g.Scores = map[string]int{}
	g.TeamFouls = map[string]int{}
	g.TeamTimeouts = map[string]int{}
	st := newFakeStore(g)
	c := openTest(t, st, &fakeNotifier{})
	in := StatInput{TeamID: "A", IsOpponentStat: true, StatType: game.StatThreePointer, Modifier: game.ModifierMade}
	if _, err := c.RecordStat(in); err != nil {
		t.Fatalf("record: %v", err)
	}
	snap := c.Snapshot()
	if snap.Scores[game.OpponentKey] != 3 || snap.Scores["A"] != 0 {
		t.Fatalf("unexpected coach mode scores %v", snap.Scores)
	}
	if snap.Prompt != nil {
		t.Fatalf("opponent made shots have no assist prompt in coach mode")
	}
	flush(t, c)
}
