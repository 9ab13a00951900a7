package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"courtside/internal/notify"
	"courtside/internal/tracker"
)

// FeedSource opens (or reuses) the session for a game and returns its feed.
type FeedSource interface {
	OpenFeed(ctx context.Context, gameID string) (*notify.Feed, error)
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	gameID string
	stop   chan struct{}
}

type Server struct {
	feeds    FeedSource
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]bool
}

func NewServer(feeds FeedSource) *Server {
	return &Server{
		feeds:    feeds,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[*Client]bool{},
	}
}

// HandleWS upgrades the request. A game_id query parameter subscribes right
// away, with last_event_id resuming a dropped stream.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 64), done: make(chan struct{})}
	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()
	metricClients.Add(1)

	go s.writeLoop(client)
	if gameID := r.URL.Query().Get("game_id"); gameID != "" {
		s.handleSubscribe(client, SubscribeMessage{Type: "subscribe", GameID: gameID, LastEventID: r.URL.Query().Get("last_event_id")})
	}
	s.readLoop(client)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.HandleWS(w, r)
}

// Clients reports open connections.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}
		switch base.Type {
		case "subscribe":
			var sub SubscribeMessage
			if err := json.Unmarshal(msg, &sub); err != nil {
				continue
			}
			s.handleSubscribe(c, sub)
		case "ping":
			out, _ := json.Marshal(Pong{Type: "pong", ProtocolVersion: ProtocolVersion, TimestampMS: time.Now().UnixMilli()})
			safeSend(c, out)
		}
	}
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			_ = c.conn.Close()
			return
		}
	}
}

func (s *Server) handleSubscribe(c *Client, sub SubscribeMessage) {
	if sub.GameID == "" {
		sendSubscribeResult(c, false, "invalid_game_id", "")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	feed, err := s.feeds.OpenFeed(ctx, sub.GameID)
	if err != nil {
		code := "internal_error"
		if errors.Is(err, tracker.ErrSessionNotFound) {
			code = "game_not_found"
		}
		sendSubscribeResult(c, false, code, sub.GameID)
		return
	}

	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
	}
	stop := make(chan struct{})
	c.stop = stop
	c.gameID = sub.GameID
	c.mu.Unlock()

	sendSubscribeResult(c, true, "", sub.GameID)
	go s.follow(c, feed, sub.LastEventID, stop)
}

// follow replays what the client missed, then relays live events. Events
// already replayed are not sent twice.
func (s *Server) follow(c *Client, feed *notify.Feed, lastEventID string, stop chan struct{}) {
	ch := feed.Subscribe()
	defer feed.Unsubscribe(ch)

	sent, _ := strconv.ParseInt(lastEventID, 10, 64)
	deliver := func(ev notify.StreamEvent) {
		id, _ := strconv.ParseInt(ev.EventID, 10, 64)
		if id <= sent {
			return
		}
		sent = id
		out, err := json.Marshal(EventMessage{Type: "event", ProtocolVersion: ProtocolVersion, StreamEvent: ev})
		if err != nil {
			log.Error().Err(err).Str("game_id", ev.GameID).Msg("ws encode failed")
			return
		}
		safeSend(c, out)
		metricEventsSent.Add(1)
	}
	for _, ev := range feed.ReplayAfter(lastEventID) {
		deliver(ev)
	}
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			deliver(ev)
		case <-stop:
			return
		case <-c.done:
			return
		}
	}
}

func (s *Server) unregister(c *Client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if !ok {
		return
	}
	metricClients.Add(-1)
	close(c.done)
	safeClose(c.send)
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

// safeSend drops the message for a client whose buffer is full; it will
// resync with last_event_id.
func safeSend(c *Client, msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
		metricEventsDropped.Add(1)
	}
}

func sendSubscribeResult(c *Client, ok bool, errCode, gameID string) {
	msg, _ := json.Marshal(SubscribeResult{Type: "subscribe_result", ProtocolVersion: ProtocolVersion, Ok: ok, Error: errCode, GameID: gameID})
	safeSend(c, msg)
}
