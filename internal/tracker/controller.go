package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"courtside/internal/game"
	"courtside/internal/notify"
	"courtside/internal/store"
	"courtside/internal/writequeue"

	"github.com/rs/zerolog/log"
)

// Controller is the GameSessionController: the only owner of a game's
// in-memory session. Every mutation happens under mu and is visible to
// Snapshot before the matching write is even enqueued. Writes go through a
// per-game queue and are never awaited while mu is held.
type Controller struct {
	deps  Deps
	queue *writequeue.Queue

	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once

	mu             sync.Mutex
	s              *session
	intents        writeIntents
	reconcileTimer *time.Timer
	closed         bool
}

// Open hydrates a session from the store, applies a fresh local clock
// checkpoint if one exists, and subscribes to change notifications.
func Open(ctx context.Context, gameID string, deps Deps) (*Controller, error) {
	deps = deps.withDefaults()
	if deps.Store == nil {
		return nil, errors.New("tracker: store required")
	}
	g, err := deps.Store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, gameID)
		}
		return nil, err
	}
	rules, auto, err := loadRules(ctx, deps, g)
	if err != nil {
		return nil, err
	}
	rosters, err := deps.Store.GetRosters(ctx, gameID)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		deps: deps,
		queue: writequeue.New("game:"+gameID, writequeue.Options{
			RetryMax:  deps.Config.WriteRetryMax,
			RetryBase: deps.Config.WriteRetryBase,
			Timeout:   deps.Config.WriteTimeout,
		}),
		done: make(chan struct{}),
		s:    newSession(g, rules, auto, rosters),
	}
	restored := c.restoreCheckpoint(ctx)

	c.mu.Lock()
	if restored {
		c.enqueueClockSyncLocked()
	}
	c.s.lastClockSync = deps.Now()
	c.publishLocked()
	c.mu.Unlock()

	if deps.Changes != nil {
		c.unsubscribe = deps.Changes.Subscribe(gameID, c.onChange)
	}
	// Bring scores in line with the event log once at startup.
	c.scheduleReconcile()
	metricSessionsActive.Add(1)
	log.Info().Str("game_id", gameID).Str("ruleset", rules.Name).Bool("coach_mode", c.s.coachMode).
		Bool("checkpoint_restored", restored).Msg("game session opened")
	return c, nil
}

func loadRules(ctx context.Context, deps Deps, g *store.Game) (game.Ruleset, game.AutomationFlags, error) {
	if deps.Rules != nil {
		return deps.Rules.Resolve(ctx, g.ID, g.TournamentID)
	}
	rules, ok := game.PresetByName(deps.Config.DefaultRuleset)
	if !ok {
		rules = game.NBARules()
	}
	return rules, game.AutomationFlags{
		Clock:      deps.Config.AutomationClock,
		Possession: deps.Config.AutomationPossession,
		Sequences:  deps.Config.AutomationSequences,
	}, nil
}

func (c *Controller) GameID() string {
	return c.s.gameID
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := c.s.snapshot()
	snap.PendingWrites = c.queue.Len()
	return snap
}

// Flush waits until every write enqueued so far has settled.
func (c *Controller) Flush(ctx context.Context) error {
	return c.queue.Drain(ctx)
}

// Close tears the session down. Pending writes are given until ctx ends to
// settle.
func (c *Controller) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		if c.reconcileTimer != nil {
			c.reconcileTimer.Stop()
		}
		c.mu.Unlock()
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		close(c.done)
		err = c.queue.Drain(ctx)
		c.queue.Close()
		metricSessionsActive.Add(-1)
		log.Info().Str("game_id", c.s.gameID).Msg("game session closed")
	})
	return err
}

// ClearPlayPrompt dismisses the open prompt and opens the next queued one.
func (c *Controller) ClearPlayPrompt() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.s.advancePrompt() {
		return ErrNoOpenPrompt
	}
	c.publishLocked()
	return nil
}

func (c *Controller) guardLocked() error {
	if c.closed || c.s.status.Terminal() {
		c.deps.Notifier.Warning("Game ended", "This game is closed and can no longer be changed.")
		return ErrGameEnded
	}
	return nil
}

// guardLiveLocked also refuses play while the final result waits for
// awards. SetQuarter and ResetClock reopen play.
func (c *Controller) guardLiveLocked() error {
	if err := c.guardLocked(); err != nil {
		return err
	}
	if c.s.awaitingAwards {
		c.deps.Notifier.Warning("Game over", "Set the quarter to reopen play, or select awards to complete the game.")
		return ErrAwaitingAwards
	}
	return nil
}

func (c *Controller) publishLocked() {
	if c.deps.Publisher == nil {
		return
	}
	c.deps.Publisher.Append(notify.EventState, c.snapshotLocked())
}

// enqueueStateLocked queues a games row update. Callers hold mu.
func (c *Controller) enqueueStateLocked(label string, u store.GameUpdate, settle func(error)) *writequeue.Ticket {
	gameID := c.s.gameID
	return c.queue.Enqueue(writequeue.Job{
		Label: label,
		Retry: true,
		Run: func(ctx context.Context) (any, error) {
			return nil, c.deps.Store.UpdateGameState(ctx, gameID, u)
		},
		Settle: func(_ any, err error) {
			if settle != nil {
				settle(err)
			}
		},
	})
}

// enqueueTalliesLocked persists the current scores and fouls. The values are
// read when the job runs so a rollback that settled earlier is included.
func (c *Controller) enqueueTalliesLocked() *writequeue.Ticket {
	c.intents.fouls++
	gameID := c.s.gameID
	return c.queue.Enqueue(writequeue.Job{
		Label: "tallies",
		Retry: true,
		Run: func(ctx context.Context) (any, error) {
			c.mu.Lock()
			u := store.GameUpdate{Scores: copyCounts(c.s.scores), TeamFouls: copyCounts(c.s.fouls)}
			c.mu.Unlock()
			return nil, c.deps.Store.UpdateGameState(ctx, gameID, u)
		},
		Settle: func(_ any, _ error) {
			c.mu.Lock()
			c.intents.fouls--
			c.mu.Unlock()
		},
	})
}
