package ws

import "courtside/internal/notify"

const ProtocolVersion = "1.0"

// SubscribeMessage switches the connection to a game's stream. Events after
// LastEventID are replayed first.
type SubscribeMessage struct {
	Type        string `json:"type"`
	GameID      string `json:"game_id"`
	LastEventID string `json:"last_event_id,omitempty"`
}

type SubscribeResult struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ok              bool   `json:"ok"`
	Error           string `json:"error,omitempty"`
	GameID          string `json:"game_id,omitempty"`
}

// EventMessage carries one feed event: a session snapshot or an operator
// notification.
type EventMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	notify.StreamEvent
}

type Pong struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	TimestampMS     int64  `json:"timestamp_ms"`
}
