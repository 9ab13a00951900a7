// Package trackertest provides an in-memory game store for tests that need a
// working session without Postgres.
package trackertest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"courtside/internal/game"
	"courtside/internal/store"
)

// MemStore mirrors the Postgres store's semantics: idempotency keys are
// unique, linked keys resolve to ids, and missing rows are store.ErrNotFound.
type MemStore struct {
	mu          sync.Mutex
	seq         int
	games       map[string]*store.Game
	stats       map[string][]game.StatEvent
	rosters     map[string]map[string]game.RosterState
	timeouts    []store.TimeoutRecord
	subs        []store.SubstitutionRecord
	overrides   map[string]store.RuleSource
	tournaments map[string]store.Tournament
}

func NewMemStore() *MemStore {
	return &MemStore{
		games:       map[string]*store.Game{},
		stats:       map[string][]game.StatEvent{},
		rosters:     map[string]map[string]game.RosterState{},
		overrides:   map[string]store.RuleSource{},
		tournaments: map[string]store.Tournament{},
	}
}

func (m *MemStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) CreateGame(_ context.Context, in store.NewGame) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := in.ID
	if id == "" {
		id = m.nextID("game")
	}
	minutes := in.QuarterLengthMinutes
	if minutes <= 0 {
		minutes = 12
	}
	shot := in.ShotClockSeconds
	if shot <= 0 {
		shot = 24
	}
	timeouts := map[string]int{}
	for k, v := range in.TeamTimeouts {
		timeouts[k] = v
	}
	m.games[id] = &store.Game{
		ID:                   id,
		TournamentID:         in.TournamentID,
		HomeTeamID:           in.HomeTeamID,
		AwayTeamID:           in.AwayTeamID,
		Status:               game.StatusScheduled,
		Quarter:              1,
		QuarterLengthMinutes: minutes,
		ClockMinutes:         minutes,
		ShotClockSeconds:     shot,
		ShotClockVisible:     true,
		Scores:               map[string]int{},
		TeamFouls:            map[string]int{},
		TeamTimeouts:         timeouts,
	}
	return id, nil
}

func (m *MemStore) GetGame(_ context.Context, id string) (*store.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *g
	cp.Scores = copyMap(g.Scores)
	cp.TeamFouls = copyMap(g.TeamFouls)
	cp.TeamTimeouts = copyMap(g.TeamTimeouts)
	cp.Awards = append([]store.Award(nil), g.Awards...)
	return &cp, nil
}

func (m *MemStore) ListGames(_ context.Context, limit int) ([]store.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Game, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) UpdateGameClock(_ context.Context, id string, c store.ClockUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return store.ErrNotFound
	}
	g.ClockMinutes, g.ClockSeconds, g.ClockRunning = c.Minutes, c.Seconds, c.Running
	if c.ShotClockSeconds != nil {
		g.ShotClockSeconds = *c.ShotClockSeconds
	}
	return nil
}

func (m *MemStore) UpdateGameState(_ context.Context, id string, u store.GameUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return store.ErrNotFound
	}
	if u.Status != nil {
		g.Status = *u.Status
	}
	if u.Quarter != nil {
		g.Quarter = *u.Quarter
	}
	if u.Clock != nil {
		g.ClockMinutes, g.ClockSeconds, g.ClockRunning = u.Clock.Minutes, u.Clock.Seconds, u.Clock.Running
		if u.Clock.ShotClockSeconds != nil {
			g.ShotClockSeconds = *u.Clock.ShotClockSeconds
		}
	}
	if u.Scores != nil {
		g.Scores = copyMap(u.Scores)
	}
	if u.TeamFouls != nil {
		g.TeamFouls = copyMap(u.TeamFouls)
	}
	if u.TeamTimeouts != nil {
		g.TeamTimeouts = copyMap(u.TeamTimeouts)
	}
	if u.PossessionTeamID != nil {
		g.PossessionTeamID = *u.PossessionTeamID
	}
	if u.PossessionArrow != nil {
		g.PossessionArrow = *u.PossessionArrow
	}
	if u.ShotClockVisible != nil {
		g.ShotClockVisible = *u.ShotClockVisible
	}
	if u.WinnerTeamID != nil {
		g.WinnerTeamID = *u.WinnerTeamID
	}
	if u.Awards != nil {
		g.Awards = append([]store.Award(nil), u.Awards...)
	}
	return nil
}

func (m *MemStore) RecordStat(_ context.Context, in store.StatInsert) (game.StatEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gameID := in.Event.GameID
	for _, ev := range m.stats[gameID] {
		if ev.IdempotencyKey == in.Event.IdempotencyKey {
			return ev, store.ErrDuplicateKey
		}
	}
	ev := in.Event
	ev.ID = m.nextID("stat")
	if ev.LinkedEventID == "" && in.LinkedEventKey != "" {
		for _, prev := range m.stats[gameID] {
			if prev.IdempotencyKey == in.LinkedEventKey {
				ev.LinkedEventID = prev.ID
			}
		}
	}
	m.stats[gameID] = append(m.stats[gameID], ev)
	return ev, nil
}

func (m *MemStore) DeleteStat(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for gameID, list := range m.stats {
		for i, ev := range list {
			if ev.ID == id {
				m.stats[gameID] = append(list[:i:i], list[i+1:]...)
				return nil
			}
		}
	}
	return store.ErrNotFound
}

func (m *MemStore) GetGameStats(_ context.Context, gameID string) ([]game.StatEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]game.StatEvent(nil), m.stats[gameID]...), nil
}

func (m *MemStore) RecordTimeout(_ context.Context, rec store.TimeoutRecord) (store.TimeoutRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.timeouts {
		if t.IdempotencyKey == rec.IdempotencyKey {
			return t, store.ErrDuplicateKey
		}
	}
	rec.ID = m.nextID("timeout")
	m.timeouts = append(m.timeouts, rec)
	return rec, nil
}

func (m *MemStore) RecordSubstitution(_ context.Context, rec store.SubstitutionRecord) (store.SubstitutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.IdempotencyKey == rec.IdempotencyKey {
			return s, store.ErrDuplicateKey
		}
	}
	roster, ok := m.rosters[rec.GameID][rec.TeamID]
	if !ok || !roster.IsOnCourt(rec.PlayerOutID) || !roster.IsOnBench(rec.PlayerInID) {
		return store.SubstitutionRecord{}, fmt.Errorf("substitution %s for %s not allowed", rec.PlayerInID, rec.PlayerOutID)
	}
	m.rosters[rec.GameID][rec.TeamID] = roster.Swap(rec.PlayerOutID, rec.PlayerInID)
	rec.ID = m.nextID("sub")
	m.subs = append(m.subs, rec)
	return rec, nil
}

func (m *MemStore) SetRoster(_ context.Context, gameID string, r game.RosterState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[gameID]; !ok {
		return store.ErrNotFound
	}
	if m.rosters[gameID] == nil {
		m.rosters[gameID] = map[string]game.RosterState{}
	}
	m.rosters[gameID][r.TeamID] = game.RosterState{
		TeamID:  r.TeamID,
		OnCourt: append([]string(nil), r.OnCourt...),
		Bench:   append([]string(nil), r.Bench...),
	}
	return nil
}

func (m *MemStore) GetRosters(_ context.Context, gameID string) (map[string]game.RosterState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]game.RosterState{}
	for k, v := range m.rosters[gameID] {
		out[k] = v
	}
	return out, nil
}

func (m *MemStore) CreateTournament(_ context.Context, t store.Tournament) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = m.nextID("tournament")
	}
	m.tournaments[t.ID] = t
	return t.ID, nil
}

func (m *MemStore) TournamentRules(_ context.Context, id string) (store.RuleSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return store.RuleSource{}, store.ErrNotFound
	}
	return t.RuleSource, nil
}

func (m *MemStore) GameRuleOverride(_ context.Context, gameID string) (store.RuleSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.overrides[gameID]
	if !ok {
		return store.RuleSource{}, store.ErrNotFound
	}
	return src, nil
}

func (m *MemStore) SetGameRuleOverride(_ context.Context, gameID string, src store.RuleSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[gameID]; !ok {
		return store.ErrNotFound
	}
	m.overrides[gameID] = src
	return nil
}

func copyMap(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
