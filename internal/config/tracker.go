package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type TrackerConfig struct {
	ReconcileDebounce time.Duration `env:"RECONCILE_DEBOUNCE" envDefault:"300ms"`
	ReconcileLogDelta int           `env:"RECONCILE_LOG_DELTA" envDefault:"10"`
	ClockSyncInterval time.Duration `env:"CLOCK_SYNC_INTERVAL" envDefault:"5s"`
	CheckpointWindow  time.Duration `env:"CHECKPOINT_WINDOW" envDefault:"5m"`

	WriteRetryMax  int           `env:"WRITE_RETRY_MAX" envDefault:"3"`
	WriteRetryBase time.Duration `env:"WRITE_RETRY_BASE" envDefault:"200ms"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`

	DefaultRuleset       string `env:"DEFAULT_RULESET" envDefault:"nba"`
	AutomationClock      bool   `env:"AUTOMATION_CLOCK" envDefault:"true"`
	AutomationPossession bool   `env:"AUTOMATION_POSSESSION" envDefault:"true"`
	AutomationSequences  bool   `env:"AUTOMATION_SEQUENCES" envDefault:"true"`
}

func LoadTracker() (TrackerConfig, error) {
	var cfg TrackerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
