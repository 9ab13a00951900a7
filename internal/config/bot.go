package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type BotConfig struct {
	ServerURL string        `env:"STAT_SERVER_URL" envDefault:"http://localhost:8080"`
	GameID    string        `env:"GAME_ID"`
	Interval  time.Duration `env:"BOT_INTERVAL" envDefault:"1500ms"`
	MaxStats  int           `env:"BOT_MAX_STATS" envDefault:"0"`
	APIKey    string        `env:"API_KEY" envDefault:""`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
