package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	HTTPAddr     string `env:"DOORLOG_HTTP_ADDR" envDefault:":8080" validate:"required"`
	DataDir      string `env:"DOORLOG_DATA_DIR" envDefault:"data/metrics" validate:"required"`
	ActionLogDir string `env:"DOORLOG_ACTION_LOG_DIR" envDefault:"logs" validate:"required"`

	LogLevel      string `env:"DOORLOG_LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`
	LogFile       string `env:"DOORLOG_LOG_FILE" envDefault:""`
	LogMaxSizeMB  int    `env:"DOORLOG_LOG_MAX_SIZE_MB" envDefault:"20" validate:"min=1"`
	LogMaxBackups int    `env:"DOORLOG_LOG_MAX_BACKUPS" envDefault:"5" validate:"min=0"`

	// ReloadInterval is the minimum spacing between manual reloads;
	// non-positive values select the default spacing.
	ReloadInterval time.Duration `env:"DOORLOG_RELOAD_INTERVAL" envDefault:"5m"`

	// ScanWindow is the maximum scan-to-open delta counted as one entry.
	ScanWindow time.Duration `env:"DOORLOG_SCAN_WINDOW" envDefault:"60s" validate:"min=1s"`

	// RetentionDays ages out action-log files after ingestion; <= 0 keeps
	// files forever and disables the sweeper.
	RetentionDays          int           `env:"DOORLOG_RETENTION_DAYS" envDefault:"30"`
	RetentionSweepInterval time.Duration `env:"DOORLOG_RETENTION_SWEEP_INTERVAL" envDefault:"12h" validate:"min=1m"`

	DevSeed bool `env:"DOORLOG_DEV_SEED" envDefault:"false"`
}

// Load reads configuration from environment variables, after attempting to
// load a local .env file. An invalid value returns an error rather than a
// partially applied config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
