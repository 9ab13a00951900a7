package ws

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"courtside/internal/game"
	"courtside/internal/notify"
	"courtside/internal/tracker"
)

func TestStreamProtocolSchema(t *testing.T) {
	compiler := jsonschema.NewCompiler()
	data, err := os.ReadFile("../../api/schema/stream_v1.schema.json")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if err := compiler.AddResource("stream_v1.schema.json", strings.NewReader(string(data))); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	schema, err := compiler.Compile("stream_v1.schema.json")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	snap := tracker.Snapshot{
		GameID:       "g1",
		Status:       game.StatusInProgress,
		Quarter:      2,
		Period:       "Q2",
		Clock:        game.GameClock{SecondsRemaining: 431, Running: true},
		ShotClock:    game.ShotClock{SecondsRemaining: 14, Running: true, Visible: true},
		HomeTeamID:   "A",
		AwayTeamID:   "B",
		Scores:       map[string]int{"A": 31, "B": 28},
		TeamFouls:    map[string]int{"A": 2, "B": 4},
		TeamTimeouts: map[string]int{"A": 6, "B": 7},
		Ruleset:      game.NBARules(),
		Automation:   game.AllAutomation(),
	}
	samples := []any{
		SubscribeResult{Type: "subscribe_result", ProtocolVersion: ProtocolVersion, Ok: true, GameID: "g1"},
		SubscribeResult{Type: "subscribe_result", ProtocolVersion: ProtocolVersion, Error: "game_not_found"},
		EventMessage{Type: "event", ProtocolVersion: ProtocolVersion, StreamEvent: notify.StreamEvent{
			EventID: "7", Event: notify.EventState, GameID: "g1", ServerTS: 1, Data: snap,
		}},
		EventMessage{Type: "event", ProtocolVersion: ProtocolVersion, StreamEvent: notify.StreamEvent{
			EventID: "8", Event: notify.EventNotification, GameID: "g1", ServerTS: 2,
			Data: notify.Notification{Level: notify.LevelWarning, Title: "No timeouts remaining", Message: "none left"},
		}},
		Pong{Type: "pong", ProtocolVersion: ProtocolVersion, TimestampMS: 3},
	}

	for i, s := range samples {
		raw, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal sample %d: %v", i, err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			t.Fatalf("unmarshal sample %d: %v", i, err)
		}
		if err := schema.Validate(v); err != nil {
			t.Fatalf("schema validate sample %d: %v", i, err)
		}
	}

	bad := `{"type":"event","protocol_version":"1.0","event_id":"1","event":"state","game_id":"g1","server_ts":1,"data":{"game_id":"g1","status":"in_progress","quarter":1,"clock":{"seconds_remaining":-1,"is_running":false},"shot_clock":{"seconds_remaining":0,"is_running":false,"is_visible":true},"scores":{},"team_fouls":{},"team_timeouts":{},"pending_writes":0}}`
	var v any
	_ = json.Unmarshal([]byte(bad), &v)
	if err := schema.Validate(v); err == nil {
		t.Fatalf("negative clock should fail validation")
	}
}
