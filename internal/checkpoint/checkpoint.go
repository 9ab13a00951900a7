package checkpoint

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNoCheckpoint = errors.New("no_checkpoint")

// Clock is the clock snapshot written on tab close or visibility loss.
type Clock struct {
	GameID           string    `json:"game_id"`
	Minutes          int       `json:"minutes"`
	Seconds          int       `json:"seconds"`
	Running          bool      `json:"is_running"`
	Quarter          int       `json:"quarter"`
	ShotClockSeconds int       `json:"shot_clock_seconds"`
	SavedAt          time.Time `json:"saved_at"`
}

func (c Clock) TotalSeconds() int {
	return c.Minutes*60 + c.Seconds
}

// Fresh reports whether the checkpoint is younger than window.
func (c Clock) Fresh(now time.Time, window time.Duration) bool {
	return !c.SavedAt.IsZero() && now.Sub(c.SavedAt) < window
}

// MemoryStore keeps checkpoints in process, for tests and single-node runs
// without Redis.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]Clock
	now   func() time.Time
	ttl   time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: map[string]Clock{}, now: time.Now, ttl: ttl}
}

func (m *MemoryStore) Save(_ context.Context, c Clock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.SavedAt.IsZero() {
		c.SavedAt = m.now()
	}
	m.items[c.GameID] = c
	return nil
}

func (m *MemoryStore) Load(_ context.Context, gameID string) (Clock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[gameID]
	if !ok {
		return Clock{}, ErrNoCheckpoint
	}
	if m.ttl > 0 && !c.Fresh(m.now(), m.ttl) {
		delete(m.items, gameID)
		return Clock{}, ErrNoCheckpoint
	}
	return c, nil
}

func (m *MemoryStore) Discard(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, gameID)
	return nil
}
