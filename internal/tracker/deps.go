package tracker

import (
	"context"
	"time"

	"courtside/internal/checkpoint"
	"courtside/internal/config"
	"courtside/internal/game"
	"courtside/internal/notify"
	"courtside/internal/realtime"
	"courtside/internal/store"
)

// Persistence is the authoritative game store.
type Persistence interface {
	GetGame(ctx context.Context, id string) (*store.Game, error)
	UpdateGameClock(ctx context.Context, id string, c store.ClockUpdate) error
	UpdateGameState(ctx context.Context, id string, u store.GameUpdate) error
	RecordStat(ctx context.Context, in store.StatInsert) (game.StatEvent, error)
	RecordTimeout(ctx context.Context, rec store.TimeoutRecord) (store.TimeoutRecord, error)
	RecordSubstitution(ctx context.Context, rec store.SubstitutionRecord) (store.SubstitutionRecord, error)
	DeleteStat(ctx context.Context, id string) error
	GetGameStats(ctx context.Context, gameID string) ([]game.StatEvent, error)
	GetRosters(ctx context.Context, gameID string) (map[string]game.RosterState, error)
}

// Subscriber delivers change notifications for one game until unsubscribed.
type Subscriber interface {
	Subscribe(gameID string, onChange func(realtime.Change)) func()
}

type Checkpointer interface {
	Save(ctx context.Context, c checkpoint.Clock) error
	Load(ctx context.Context, gameID string) (checkpoint.Clock, error)
	Discard(ctx context.Context, gameID string) error
}

type RulesLoader interface {
	Resolve(ctx context.Context, gameID, tournamentID string) (game.Ruleset, game.AutomationFlags, error)
}

// Notifier is fire-and-forget operator feedback.
type Notifier interface {
	Error(title, message string)
	Warning(title, message string)
	Success(title, message string)
}

// Publisher receives every state change as a snapshot.
type Publisher interface {
	Append(event string, data any) notify.StreamEvent
}

type Deps struct {
	Store       Persistence
	Changes     Subscriber
	Checkpoints Checkpointer
	Rules       RulesLoader
	Notifier    Notifier
	Publisher   Publisher
	Config      config.TrackerConfig
	Now         func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Config.ReconcileDebounce <= 0 {
		d.Config.ReconcileDebounce = 300 * time.Millisecond
	}
	if d.Config.ClockSyncInterval <= 0 {
		d.Config.ClockSyncInterval = 5 * time.Second
	}
	if d.Config.CheckpointWindow <= 0 {
		d.Config.CheckpointWindow = 5 * time.Minute
	}
	if d.Config.DefaultRuleset == "" {
		d.Config.DefaultRuleset = "nba"
	}
	return d
}

type nopNotifier struct{}

func (nopNotifier) Error(string, string)   {}
func (nopNotifier) Warning(string, string) {}
func (nopNotifier) Success(string, string) {}
