// Package config loads the bookstock host configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreNATS   = "nats"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	SystemName  string `env:"BOOKSTOCK_SYSTEM_NAME"`
	HTTPAddr    string `env:"BOOKSTOCK_HTTP_ADDR"    envDefault:":8080"`
	MetricsAddr string `env:"BOOKSTOCK_METRICS_ADDR" envDefault:":2112"`
	LogLevel    string `env:"BOOKSTOCK_LOG_LEVEL"    envDefault:"info"`

	Store      string `env:"BOOKSTOCK_STORE"       envDefault:"memory"`
	SQLitePath string `env:"BOOKSTOCK_SQLITE_PATH" envDefault:"bookstock.db"`
	NATSURL    string `env:"BOOKSTOCK_NATS_URL"    envDefault:"nats://localhost:4222"`
	NATSBucket string `env:"BOOKSTOCK_NATS_BUCKET" envDefault:"bookstock_books"`

	MailboxSize         int           `env:"BOOKSTOCK_MAILBOX_SIZE"          envDefault:"1024"`
	DrainTimeout        time.Duration `env:"BOOKSTOCK_DRAIN_TIMEOUT"         envDefault:"10s"`
	ScopeAcquireTimeout time.Duration `env:"BOOKSTOCK_SCOPE_ACQUIRE_TIMEOUT" envDefault:"5s"`
	RequestTimeout      time.Duration `env:"BOOKSTOCK_REQUEST_TIMEOUT"       envDefault:"5s"`
	Seed                bool          `env:"BOOKSTOCK_SEED"                  envDefault:"true"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite, StoreNATS:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store)
	}
	if c.MailboxSize <= 0 {
		return fmt.Errorf("%w: mailbox size must be positive", ErrInvalid)
	}
	if c.DrainTimeout <= 0 {
		return fmt.Errorf("%w: drain timeout must be positive", ErrInvalid)
	}
	if c.ScopeAcquireTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalid)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel onto a slog level.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return lvl, nil
}
