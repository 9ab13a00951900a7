package realtime

import "testing"

func TestHubDeliversPerGame(t *testing.T) {
	h := NewHub()
	var got []Change
	unsub := h.Subscribe("g1", func(c Change) { got = append(got, c) })
	h.Subscribe("g2", func(Change) { t.Fatal("g2 subscriber must not see g1 changes") })

	h.Publish(Change{Table: TableGameStats, GameID: "g1", Op: "INSERT"})
	if len(got) != 1 || got[0].Table != TableGameStats {
		t.Fatalf("unexpected deliveries %+v", got)
	}
	unsub()
	unsub()
	h.Publish(Change{Table: TableGames, GameID: "g1", Op: "UPDATE"})
	if len(got) != 1 {
		t.Fatalf("expected no delivery after unsubscribe, got %+v", got)
	}
	if h.Subscribers("g1") != 0 {
		t.Fatal("expected g1 subscribers cleared")
	}
}

func TestHubRecoversSubscriberPanic(t *testing.T) {
	h := NewHub()
	h.Subscribe("g1", func(Change) { panic("boom") })
	h.Publish(Change{Table: TableGames, GameID: "g1"})
}

func TestParseChange(t *testing.T) {
	c, ok := ParseChange(`{"table":"game_stats","game_id":"g1","op":"DELETE"}`)
	if !ok || c.GameID != "g1" || c.Op != "DELETE" {
		t.Fatalf("unexpected change %+v ok=%v", c, ok)
	}
	if _, ok := ParseChange(`{"table":"games"}`); ok {
		t.Fatal("expected payload without game id rejected")
	}
}
