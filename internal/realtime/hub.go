package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	TableGames     = "games"
	TableGameStats = "game_stats"
)

// Change is one row-level notification from the authoritative store.
type Change struct {
	Table  string `json:"table"`
	GameID string `json:"game_id"`
	Op     string `json:"op"`
}

// Hub fans store changes out to per-game subscribers.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(Change)
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[int]func(Change){}}
}

// Subscribe registers onChange for one game. The returned func unsubscribes
// and is safe to call more than once.
func (h *Hub) Subscribe(gameID string, onChange func(Change)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	if h.subs[gameID] == nil {
		h.subs[gameID] = map[int]func(Change){}
	}
	h.subs[gameID][id] = onChange
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[gameID], id)
			if len(h.subs[gameID]) == 0 {
				delete(h.subs, gameID)
			}
		})
	}
}

// Publish delivers c to the game's subscribers outside the hub lock.
func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	fns := make([]func(Change), 0, len(h.subs[c.GameID]))
	for _, fn := range h.subs[c.GameID] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	metricChangesTotal.Add(1)
	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Str("game_id", c.GameID).Str("table", c.Table).Msg("change subscriber panicked")
				}
			}()
			fn(c)
		}()
	}
}

func (h *Hub) Subscribers(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[gameID])
}
