package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"courtside/internal/config"
	"courtside/internal/game"
	"courtside/internal/realtime"
	"courtside/internal/store"
)

var errStoreDown = errors.New("store unavailable")

type fakeStore struct {
	mu sync.Mutex

	game    store.Game
	stats   []game.StatEvent
	links   map[string]string
	rosters map[string]game.RosterState
	nextID  int

	gate         chan struct{}
	delay        time.Duration
	failStats    bool
	failTimeouts bool
	failSubs     bool
	failSubsIn   map[string]bool
	failDeletes  bool
	// afterStatsRead runs once GetGameStats has copied the log, before it
	// returns.
	afterStatsRead func()

	inFlight    int
	maxInFlight int
	order       []string
	updates     []store.GameUpdate
	clocks      []store.ClockUpdate
	deleted     []string
	statsReads  int
}

func newFakeStore(g store.Game) *fakeStore {
	return &fakeStore{game: g, links: map[string]string{}, rosters: map[string]game.RosterState{}}
}

func (f *fakeStore) GetGame(_ context.Context, id string) (*store.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.game.ID {
		return nil, store.ErrNotFound
	}
	g := f.game
	g.Scores = copyCounts(f.game.Scores)
	g.TeamFouls = copyCounts(f.game.TeamFouls)
	g.TeamTimeouts = copyCounts(f.game.TeamTimeouts)
	return &g, nil
}

func (f *fakeStore) UpdateGameClock(_ context.Context, _ string, c store.ClockUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clocks = append(f.clocks, c)
	return nil
}

func (f *fakeStore) UpdateGameState(_ context.Context, _ string, u store.GameUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	if u.TeamTimeouts != nil {
		f.game.TeamTimeouts = copyCounts(u.TeamTimeouts)
	}
	if u.TeamFouls != nil {
		f.game.TeamFouls = copyCounts(u.TeamFouls)
	}
	if u.Quarter != nil {
		f.game.Quarter = *u.Quarter
	}
	if u.Status != nil {
		f.game.Status = *u.Status
	}
	return nil
}

func (f *fakeStore) RecordStat(ctx context.Context, in store.StatInsert) (game.StatEvent, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate, delay := f.gate, f.delay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return game.StatEvent{}, ctx.Err()
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStats {
		return game.StatEvent{}, errStoreDown
	}
	for _, ev := range f.stats {
		if ev.IdempotencyKey == in.Event.IdempotencyKey {
			return ev, store.ErrDuplicateKey
		}
	}
	ev := in.Event
	f.nextID++
	ev.ID = fmt.Sprintf("stat-%d", f.nextID)
	if in.LinkedEventKey != "" {
		for _, prev := range f.stats {
			if prev.IdempotencyKey == in.LinkedEventKey {
				ev.LinkedEventID = prev.ID
			}
		}
		f.links[ev.IdempotencyKey] = in.LinkedEventKey
	}
	f.stats = append(f.stats, ev)
	f.order = append(f.order, ev.IdempotencyKey)
	return ev, nil
}

func (f *fakeStore) RecordTimeout(_ context.Context, rec store.TimeoutRecord) (store.TimeoutRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTimeouts {
		return store.TimeoutRecord{}, errStoreDown
	}
	return rec, nil
}

func (f *fakeStore) RecordSubstitution(_ context.Context, rec store.SubstitutionRecord) (store.SubstitutionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSubs || f.failSubsIn[rec.PlayerInID] {
		return store.SubstitutionRecord{}, errStoreDown
	}
	return rec, nil
}

func (f *fakeStore) DeleteStat(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeletes {
		return errStoreDown
	}
	for i, ev := range f.stats {
		if ev.ID == id {
			f.stats = append(f.stats[:i], f.stats[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) GetGameStats(_ context.Context, _ string) ([]game.StatEvent, error) {
	f.mu.Lock()
	f.statsReads++
	out := append([]game.StatEvent(nil), f.stats...)
	hook := f.afterStatsRead
	f.afterStatsRead = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeStore) GetRosters(_ context.Context, _ string) (map[string]game.RosterState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]game.RosterState, len(f.rosters))
	for k, v := range f.rosters {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) statCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stats)
}

func (f *fakeStore) statsReadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statsReads
}

func (f *fakeStore) clockWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clocks)
}

func (f *fakeStore) setFailStats(v bool) {
	f.mu.Lock()
	f.failStats = v
	f.mu.Unlock()
}

type recordedNote struct {
	level, title string
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []recordedNote
}

func (n *fakeNotifier) add(level, title string) {
	n.mu.Lock()
	n.notes = append(n.notes, recordedNote{level: level, title: title})
	n.mu.Unlock()
}

func (n *fakeNotifier) Error(title, _ string)   { n.add("error", title) }
func (n *fakeNotifier) Warning(title, _ string) { n.add("warning", title) }
func (n *fakeNotifier) Success(title, _ string) { n.add("success", title) }

func (n *fakeNotifier) count(level string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, note := range n.notes {
		if note.level == level {
			c++
		}
	}
	return c
}

type fakeChanges struct {
	mu  sync.Mutex
	fns map[string]func(realtime.Change)
}

func (f *fakeChanges) Subscribe(gameID string, fn func(realtime.Change)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fns == nil {
		f.fns = map[string]func(realtime.Change){}
	}
	f.fns[gameID] = fn
	return func() {
		f.mu.Lock()
		delete(f.fns, gameID)
		f.mu.Unlock()
	}
}

func (f *fakeChanges) emit(ch realtime.Change) {
	f.mu.Lock()
	fn := f.fns[ch.GameID]
	f.mu.Unlock()
	if fn != nil {
		fn(ch)
	}
}

func baseGame() store.Game {
	return store.Game{
		ID:                   "g1",
		HomeTeamID:           "A",
		AwayTeamID:           "B",
		Status:               game.StatusInProgress,
		Quarter:              1,
		QuarterLengthMinutes: 12,
		ClockMinutes:         12,
		ShotClockSeconds:     24,
		ShotClockVisible:     true,
		Scores:               map[string]int{"A": 0, "B": 0},
		TeamFouls:            map[string]int{"A": 0, "B": 0},
		TeamTimeouts:         map[string]int{"A": 7, "B": 7},
	}
}

// seedMadeShots adds n stored made field goals for team so the event log
// agrees with a score of 2n.
func seedMadeShots(f *fakeStore, team string, n int) {
	for i := 0; i < n; i++ {
		f.nextID++
		f.stats = append(f.stats, game.StatEvent{
			ID:             fmt.Sprintf("stat-%d", f.nextID),
			IdempotencyKey: fmt.Sprintf("seed-%s-%d", team, i),
			GameID:         f.game.ID,
			TeamID:         team,
			StatType:       game.StatFieldGoal,
			Modifier:       game.ModifierMade,
			StatValue:      2,
			Quarter:        1,
		})
	}
	f.game.Scores[team] += 2 * n
}

func testDeps(st *fakeStore, n *fakeNotifier) Deps {
	return Deps{
		Store:    st,
		Notifier: n,
		Config: config.TrackerConfig{
			// Reconciliation is exercised by dedicated tests only.
			ReconcileDebounce:    time.Hour,
			ClockSyncInterval:    5 * time.Second,
			CheckpointWindow:     5 * time.Minute,
			WriteTimeout:         2 * time.Second,
			DefaultRuleset:       "nba",
			AutomationClock:      true,
			AutomationPossession: true,
			AutomationSequences:  true,
		},
	}
}

func openTest(t *testing.T, st *fakeStore, n *fakeNotifier, mutate ...func(*Deps)) *Controller {
	t.Helper()
	deps := testDeps(st, n)
	for _, fn := range mutate {
		fn(&deps)
	}
	c, err := Open(context.Background(), st.game.ID, deps)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(ctx)
	})
	return c
}

func flush(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
