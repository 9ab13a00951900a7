package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const Channel = "game_changes"

// PGListener holds a dedicated connection LISTENing on the change channel and
// republishes every payload to a Hub. It reconnects with exponential backoff.
type PGListener struct {
	dsn      string
	hub      *Hub
	retry    time.Duration
	maxRetry time.Duration
}

func NewPGListener(dsn string, hub *Hub) *PGListener {
	return &PGListener{dsn: dsn, hub: hub, retry: 2 * time.Second, maxRetry: 30 * time.Second}
}

// Run listens until ctx ends.
func (l *PGListener) Run(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.retry
	b.MaxInterval = l.maxRetry
	b.MaxElapsedTime = 0

	op := func() error {
		started := time.Now()
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		// A connection that held for a while starts the schedule over.
		if time.Since(started) > l.maxRetry {
			b.Reset()
		}
		return err
	}
	_ = backoff.RetryNotify(op, backoff.WithContext(b, ctx), func(err error, d time.Duration) {
		metricListenerReconnects.Add(1)
		log.Warn().Err(err).Dur("retry_in", d).Msg("change listener disconnected")
	})
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return err
	}
	log.Info().Str("channel", Channel).Msg("change listener connected")
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		c, ok := ParseChange(n.Payload)
		if !ok {
			metricChangeParseErrors.Add(1)
			continue
		}
		l.hub.Publish(c)
	}
}

func ParseChange(payload string) (Change, bool) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil || c.GameID == "" || c.Table == "" {
		return Change{}, false
	}
	return c, true
}
