package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"castypos.com/posserver/internal/plan"
)

// EnvPrefix is accepted in front of every environment key (POSSERVER_DB_PATH or DB_PATH).
const EnvPrefix = "POSSERVER"

// Config holds all configuration values
type Config struct {
	Addr         string        `yaml:"addr" envconfig:"ADDR"`
	Port         string        `yaml:"-" envconfig:"PORT"`
	DBPath       string        `yaml:"db_path" envconfig:"DB_PATH"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`

	OfflineGraceDays int `yaml:"offline_grace_days" envconfig:"OFFLINE_GRACE_DAYS"`
	TrialDays        int `yaml:"trial_days" envconfig:"TRIAL_DAYS"`

	LogLevel  string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT"`

	RedisURL   string        `yaml:"redis_url" envconfig:"REDIS_URL"`
	RateLimit  int64         `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	RateWindow time.Duration `yaml:"rate_window" envconfig:"RATE_WINDOW"`

	AdminAPIKey string `yaml:"admin_api_key" envconfig:"ADMIN_API_KEY"`

	Plans map[plan.ID]plan.Plan `yaml:"plans" ignored:"true"`

	DBPathSource string `yaml:"-" ignored:"true"` // where DBPath was set from: "default", "yaml file", or "env var"
	DemoMode     bool   `yaml:"-" ignored:"true"` // load sample data on new database (set via --demo flag)
}

// Load loads configuration from YAML file and overrides with env vars if present
func Load(path string) (*Config, error) {
	// Defaults
	cfg := &Config{
		Addr:             ":8080",
		DBPath:           "./posserver.db",
		DBPathSource:     "default",
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     10 * time.Second,
		IdleTimeout:      120 * time.Second,
		OfflineGraceDays: 7,
		TrialDays:        30,
		LogLevel:         "info",
		LogFormat:        "json",
		RateLimit:        60,
		RateWindow:       time.Minute,
	}

	// Load from YAML if file exists
	if f, err := os.Open(path); err == nil {
		defer f.Close()
		prevDBPath := cfg.DBPath
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if cfg.DBPath != prevDBPath {
			cfg.DBPathSource = "yaml file"
		}
	}

	// Override with environment variables; unset keys keep their current value
	prevDBPath := cfg.DBPath
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("parsing env: %w", err)
	}
	if cfg.DBPath != prevDBPath {
		cfg.DBPathSource = "env var"
	}
	if cfg.Port != "" {
		cfg.Addr = ":" + cfg.Port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.OfflineGraceDays < 0 {
		return errors.New("offline_grace_days must not be negative")
	}
	if c.TrialDays < 0 {
		return errors.New("trial_days must not be negative")
	}
	if c.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateWindow <= 0 {
		return errors.New("rate_window must be positive when rate_limit is set")
	}
	return nil
}

// RateLimitEnabled reports whether the client API should be rate limited.
func (c *Config) RateLimitEnabled() bool {
	return c.RedisURL != "" && c.RateLimit > 0
}
