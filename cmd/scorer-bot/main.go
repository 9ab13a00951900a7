package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"courtside/internal/config"
	"courtside/internal/game"
	"courtside/internal/logging"
	"courtside/internal/store"
	"courtside/internal/tracker"
	"courtside/internal/ws"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// scorer-bot drives a game with random stats while following its live feed.
// Useful for load testing a stat-server and for watching the automation react.
func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}
	if cfg.GameID == "" {
		log.Fatal().Msg("GAME_ID required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := &bot{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
	state, err := b.openSession(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("open session failed")
	}
	b.teams = [2]string{state.HomeTeamID, state.AwayTeamID}

	go b.follow(ctx)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	sent := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := b.recordRandomStat(ctx); err != nil {
			log.Warn().Err(err).Msg("record stat failed")
			continue
		}
		sent++
		if cfg.MaxStats > 0 && sent >= cfg.MaxStats {
			log.Info().Int("stats", sent).Msg("done")
			return
		}
	}
}

type bot struct {
	cfg    config.BotConfig
	client *http.Client
	rnd    *rand.Rand
	teams  [2]string
}

type sessionState struct {
	HomeTeamID string         `json:"home_team_id"`
	AwayTeamID string         `json:"away_team_id"`
	Scores     map[string]int `json:"scores"`
}

func (b *bot) openSession(ctx context.Context) (sessionState, error) {
	var out struct {
		State sessionState `json:"state"`
	}
	err := backoff.Retry(func() error {
		return b.post(ctx, "/session", nil, &out)
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx))
	return out.State, err
}

var plays = []struct {
	stat game.StatType
	mod  game.Modifier
}{
	{game.StatFieldGoal, game.ModifierMade},
	{game.StatFieldGoal, game.ModifierMissed},
	{game.StatThreePointer, game.ModifierMade},
	{game.StatThreePointer, game.ModifierMissed},
	{game.StatRebound, game.ModifierDefensive},
	{game.StatRebound, game.ModifierOffensive},
	{game.StatTurnover, game.ModifierNone},
	{game.StatSteal, game.ModifierNone},
	{game.StatFoul, game.ModifierPersonal},
}

func (b *bot) recordRandomStat(ctx context.Context) error {
	p := plays[b.rnd.Intn(len(plays))]
	in := tracker.StatInput{
		TeamID:         b.teams[b.rnd.Intn(2)],
		PlayerID:       fmt.Sprintf("p%d", b.rnd.Intn(5)+1),
		StatType:       p.stat,
		Modifier:       p.mod,
		IdempotencyKey: store.NewID(),
	}
	var out struct {
		State sessionState `json:"state"`
	}
	// The key is reused across retries so a lost response is never double counted.
	err := backoff.Retry(func() error {
		return b.post(ctx, "/stats", in, &out)
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx))
	if err != nil {
		return err
	}
	log.Info().Str("team_id", in.TeamID).Str("stat", string(in.StatType)).Str("modifier", string(in.Modifier)).
		Interface("scores", out.State.Scores).Msg("stat recorded")
	// Prompts are not answered; dismiss whatever opened.
	_ = b.do(ctx, http.MethodDelete, "/prompt", nil, nil)
	return nil
}

func (b *bot) post(ctx context.Context, path string, body, out any) error {
	return b.do(ctx, http.MethodPost, path, body, out)
}

func (b *bot) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return backoff.Permanent(err)
		}
	}
	u := strings.TrimRight(b.cfg.ServerURL, "/") + "/api/games/" + url.PathEscape(b.cfg.GameID) + path
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return backoff.Permanent(fmt.Errorf("%s %s: %s", method, path, e.Error))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// follow prints the live feed, resuming from the last seen event on reconnect.
func (b *bot) follow(ctx context.Context) {
	lastEventID := ""
	wsURL := strings.Replace(strings.TrimRight(b.cfg.ServerURL, "/"), "http", "ws", 1) + "/ws"
	for ctx.Err() == nil {
		q := url.Values{"game_id": {b.cfg.GameID}}
		if lastEventID != "" {
			q.Set("last_event_id", lastEventID)
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL+"?"+q.Encode(), nil)
		if err != nil {
			log.Warn().Err(err).Msg("stream dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}
		go func() {
			<-ctx.Done()
			_ = conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var msg ws.EventMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "event" {
				continue
			}
			lastEventID = msg.EventID
			log.Debug().Str("event_id", msg.EventID).Str("event", msg.Event).Msg("stream event")
		}
		_ = conn.Close()
	}
}
