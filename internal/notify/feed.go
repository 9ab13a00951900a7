package notify

import (
	"strconv"
	"sync"
	"time"
)

const (
	EventNotification = "notification"
	EventState        = "state"
	EventPrompt       = "prompt"
)

type StreamEvent struct {
	EventID  string `json:"event_id"`
	Event    string `json:"event"`
	GameID   string `json:"game_id"`
	ServerTS int64  `json:"server_ts"`
	Data     any    `json:"data"`
}

// Feed is a bounded per-game event log with live watchers. Slow watchers
// miss events and are expected to catch up with ReplayAfter.
type Feed struct {
	mu       sync.Mutex
	gameID   string
	nextID   int64
	max      int
	events   []StreamEvent
	watchers map[chan StreamEvent]struct{}
	closed   bool
}

func NewFeed(gameID string, max int) *Feed {
	if max <= 0 {
		max = 500
	}
	return &Feed{
		gameID:   gameID,
		max:      max,
		watchers: map[chan StreamEvent]struct{}{},
	}
}

func (f *Feed) Append(event string, data any) StreamEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return StreamEvent{}
	}
	f.nextID++
	ev := StreamEvent{
		EventID:  strconv.FormatInt(f.nextID, 10),
		Event:    event,
		GameID:   f.gameID,
		ServerTS: time.Now().UnixMilli(),
		Data:     data,
	}
	f.events = append(f.events, ev)
	if len(f.events) > f.max {
		f.events = f.events[len(f.events)-f.max:]
	}
	for ch := range f.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

func (f *Feed) ReplayAfter(lastEventID string) []StreamEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	last, err := strconv.ParseInt(lastEventID, 10, 64)
	if lastEventID == "" || err != nil {
		out := make([]StreamEvent, len(f.events))
		copy(out, f.events)
		return out
	}
	out := make([]StreamEvent, 0, len(f.events))
	for _, ev := range f.events {
		id, _ := strconv.ParseInt(ev.EventID, 10, 64)
		if id > last {
			out = append(out, ev)
		}
	}
	return out
}

func (f *Feed) Subscribe() chan StreamEvent {
	ch := make(chan StreamEvent, 32)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch
	}
	f.watchers[ch] = struct{}{}
	return ch
}

func (f *Feed) Unsubscribe(ch chan StreamEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.watchers[ch]; ok {
		delete(f.watchers, ch)
		close(ch)
	}
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.watchers {
		close(ch)
		delete(f.watchers, ch)
	}
}

// Broker owns one Feed per game.
type Broker struct {
	mu    sync.Mutex
	max   int
	feeds map[string]*Feed
}

func NewBroker(max int) *Broker {
	return &Broker{max: max, feeds: map[string]*Feed{}}
}

func (b *Broker) Feed(gameID string) *Feed {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.feeds[gameID]
	if !ok {
		f = NewFeed(gameID, b.max)
		b.feeds[gameID] = f
	}
	return f
}

func (b *Broker) Drop(gameID string) {
	b.mu.Lock()
	f, ok := b.feeds[gameID]
	delete(b.feeds, gameID)
	b.mu.Unlock()
	if ok {
		f.Close()
	}
}
