package config

import (
	"testing"
	"time"
)

func TestLoadBotDefaults(t *testing.T) {
	cfg, err := LoadBot()
	if err != nil {
		t.Fatalf("LoadBot() error = %v", err)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Fatalf("ServerURL = %q, want http://localhost:8080", cfg.ServerURL)
	}
	if cfg.Interval != 1500*time.Millisecond {
		t.Fatalf("Interval = %v, want 1.5s", cfg.Interval)
	}
}

func TestLoadBotOverrides(t *testing.T) {
	t.Setenv("STAT_SERVER_URL", "http://127.0.0.1:9000")
	t.Setenv("GAME_ID", "g1")
	t.Setenv("BOT_INTERVAL", "250ms")
	t.Setenv("API_KEY", "key-a")

	cfg, err := LoadBot()
	if err != nil {
		t.Fatalf("LoadBot() error = %v", err)
	}
	if cfg.ServerURL != "http://127.0.0.1:9000" || cfg.GameID != "g1" {
		t.Fatalf("unexpected bot config: %+v", cfg)
	}
	if cfg.Interval != 250*time.Millisecond || cfg.APIKey != "key-a" {
		t.Fatalf("unexpected bot config: %+v", cfg)
	}
}
