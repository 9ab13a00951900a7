package tracker

import (
	"context"
	"errors"
	"sync"

	"courtside/internal/notify"

	"github.com/rs/zerolog/log"
)

type entry struct {
	ctrl   *Controller
	cancel context.CancelFunc
}

// Registry owns one Controller per open game.
type Registry struct {
	deps   Deps
	broker *notify.Broker

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(deps Deps, broker *notify.Broker) *Registry {
	if broker == nil {
		broker = notify.NewBroker(0)
	}
	return &Registry{deps: deps, broker: broker, sessions: map[string]*entry{}}
}

func (r *Registry) Broker() *notify.Broker {
	return r.broker
}

// Open returns the running controller for gameID, starting one if needed.
func (r *Registry) Open(ctx context.Context, gameID string) (*Controller, error) {
	r.mu.Lock()
	if e, ok := r.sessions[gameID]; ok {
		r.mu.Unlock()
		return e.ctrl, nil
	}
	r.mu.Unlock()

	feed := r.broker.Feed(gameID)
	deps := r.deps
	deps.Notifier = notify.NewFeedNotifier(feed, gameID)
	deps.Publisher = feed
	ctrl, err := Open(ctx, gameID, deps)
	if err != nil {
		r.mu.Lock()
		_, running := r.sessions[gameID]
		r.mu.Unlock()
		if !running {
			r.broker.Drop(gameID)
		}
		return nil, err
	}

	r.mu.Lock()
	if e, ok := r.sessions[gameID]; ok {
		r.mu.Unlock()
		// Lost a race with a concurrent Open.
		_ = ctrl.Close(ctx)
		return e.ctrl, nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	r.sessions[gameID] = &entry{ctrl: ctrl, cancel: cancel}
	r.mu.Unlock()

	go ctrl.Run(runCtx)
	return ctrl, nil
}

// OpenFeed opens the game's session and returns its event feed.
func (r *Registry) OpenFeed(ctx context.Context, gameID string) (*notify.Feed, error) {
	if _, err := r.Open(ctx, gameID); err != nil {
		return nil, err
	}
	return r.broker.Feed(gameID), nil
}

func (r *Registry) Get(gameID string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[gameID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.ctrl, nil
}

// Close checkpoints the clock and tears the session down.
func (r *Registry) Close(ctx context.Context, gameID string) error {
	r.mu.Lock()
	e, ok := r.sessions[gameID]
	if ok {
		delete(r.sessions, gameID)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.cancel()
	var errs []error
	if err := e.ctrl.SaveClockBeforeExit(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := e.ctrl.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	r.broker.Drop(gameID)
	return errors.Join(errs...)
}

func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		if err := r.Close(ctx, id); err != nil {
			log.Warn().Err(err).Str("game_id", id).Msg("session close failed")
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
