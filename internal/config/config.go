package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name        string `env:"APP_NAME" envDefault:"gamesync"`
	Env         string `env:"APP_ENV" envDefault:"development"`
	MetricsAddr string `env:"METRICS_ADDR"`

	Store    Store
	Redis    Redis
	Postgres Postgres
	Poll     Poll
	Ladder   Ladder
	Archive  Archive
}

// Store selects the session store backend.
type Store struct {
	Backend string `env:"STORE_BACKEND" envDefault:"redis"` // redis or memory
}

// Redis holds session store connection info.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Postgres captures connection info for the archive database. Optional:
// with an empty host the archive is disabled.
type Postgres struct {
	Host     string `env:"PG_HOST"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER"`
	Password string `env:"PG_PASSWORD"`
	Database string `env:"PG_DATABASE"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Poll groups convergence-loop defaults. The interval and the redundancy
// of the terminal check are tunables, not guaranteed staleness bounds.
type Poll struct {
	Interval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
}

// Ladder configures the word-ladder dictionary.
type Ladder struct {
	DictionaryPath string `env:"LADDER_DICTIONARY_PATH"`
}

// Archive governs the completed-match sweeper.
type Archive struct {
	SweepInterval time.Duration `env:"ARCHIVE_SWEEP_INTERVAL" envDefault:"5m"`
	SweepLookback time.Duration `env:"ARCHIVE_SWEEP_LOOKBACK" envDefault:"24h"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
