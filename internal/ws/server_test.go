package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"courtside/internal/notify"
	"courtside/internal/tracker"
)

type brokerSource struct {
	broker *notify.Broker
}

func (s brokerSource) OpenFeed(_ context.Context, gameID string) (*notify.Feed, error) {
	if gameID == "missing" {
		return nil, tracker.ErrSessionNotFound
	}
	return s.broker.Feed(gameID), nil
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, out any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestSubscribeReplaysThenStreams(t *testing.T) {
	broker := notify.NewBroker(16)
	feed := broker.Feed("g1")
	feed.Append(notify.EventState, map[string]int{"n": 1})
	feed.Append(notify.EventState, map[string]int{"n": 2})

	srv := httptest.NewServer(NewServer(brokerSource{broker: broker}))
	defer srv.Close()
	conn := dial(t, srv, "?game_id=g1&last_event_id=1")

	var res SubscribeResult
	readJSON(t, conn, &res)
	if !res.Ok || res.GameID != "g1" {
		t.Fatalf("unexpected subscribe result %+v", res)
	}
	var ev EventMessage
	readJSON(t, conn, &ev)
	if ev.EventID != "2" || ev.Event != notify.EventState {
		t.Fatalf("expected replay of event 2, got %+v", ev)
	}

	feed.Append(notify.EventNotification, notify.Notification{Level: notify.LevelError, Title: "Stat not saved"})
	readJSON(t, conn, &ev)
	if ev.EventID != "3" || ev.Event != notify.EventNotification {
		t.Fatalf("expected live event 3, got %+v", ev)
	}
}

func TestSubscribeUnknownGame(t *testing.T) {
	srv := httptest.NewServer(NewServer(brokerSource{broker: notify.NewBroker(4)}))
	defer srv.Close()
	conn := dial(t, srv, "")
	if err := conn.WriteJSON(SubscribeMessage{Type: "subscribe", GameID: "missing"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var res SubscribeResult
	readJSON(t, conn, &res)
	if res.Ok || res.Error != "game_not_found" {
		t.Fatalf("expected game_not_found, got %+v", res)
	}
}

func TestPingPong(t *testing.T) {
	srv := httptest.NewServer(NewServer(brokerSource{broker: notify.NewBroker(4)}))
	defer srv.Close()
	conn := dial(t, srv, "")
	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var pong Pong
	readJSON(t, conn, &pong)
	if pong.Type != "pong" || pong.ProtocolVersion != ProtocolVersion {
		t.Fatalf("unexpected pong %+v", pong)
	}
}
