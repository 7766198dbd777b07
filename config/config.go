// Package config loads guild-wheel settings from a .env file, the
// environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/lixenwraith/guild-wheel/authority"
	"github.com/lixenwraith/guild-wheel/constants"
)

// Authority backends
const (
	AuthoritySQLite = "sqlite"
	AuthorityHTTP   = "http"
)

// Config holds every runtime setting
type Config struct {
	Authority  string        `env:"GUILD_WHEEL_AUTHORITY" envDefault:"sqlite"`
	APIBase    string        `env:"GUILD_WHEEL_API_BASE" envDefault:"http://localhost:8080"`
	APITimeout time.Duration `env:"GUILD_WHEEL_API_TIMEOUT" envDefault:"10s"`
	DBPath     string        `env:"GUILD_WHEEL_DB_PATH" envDefault:"guild-wheel.db"`
	MaxAbsence int           `env:"GUILD_WHEEL_MAX_ABSENCE" envDefault:"3"`
	Quality    string        `env:"GUILD_WHEEL_QUALITY" envDefault:"silver"`

	SpinDuration    time.Duration `env:"GUILD_WHEEL_SPIN_DURATION" envDefault:"3s"`
	MinTurns        int           `env:"GUILD_WHEEL_MIN_TURNS" envDefault:"3"`
	MaxTurns        int           `env:"GUILD_WHEEL_MAX_TURNS" envDefault:"5"`
	ZeroOffset      float64       `env:"GUILD_WHEEL_ZERO_OFFSET" envDefault:"0"`
	BoundaryEpsilon float64       `env:"GUILD_WHEEL_BOUNDARY_EPSILON" envDefault:"0.02"`
	FPS             int           `env:"GUILD_WHEEL_FPS" envDefault:"60"`

	// Audio opens the sound device; Mute only starts the session silent
	Audio  bool `env:"GUILD_WHEEL_AUDIO" envDefault:"true"`
	Mute   bool `env:"GUILD_WHEEL_MUTE"`
	Volume int  `env:"GUILD_WHEEL_VOLUME" envDefault:"60"`

	Debug    bool   `env:"GUILD_WHEEL_DEBUG"`
	LogLevel string `env:"GUILD_WHEEL_LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"GUILD_WHEEL_LOG_FILE" envDefault:"guild-wheel.log"`
}

// ParseEnv loads configuration from environment variables
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotenv merges a .env file into the environment without overriding
// variables already set; a missing file is not an error
func LoadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration for a program named name from dotenv, env and args
func Load(name string, args []string, dotenv string) (Config, error) {
	if err := LoadDotenv(dotenv); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.ParseFlags(name, args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseFlags overrides fields with any flags present in args
func (c *Config) ParseFlags(name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&c.Authority, "authority", c.Authority, "Winner authority (sqlite or http)")
	fs.StringVar(&c.APIBase, "api", c.APIBase, "Guild web API base URL")
	fs.StringVar(&c.DBPath, "db", c.DBPath, "SQLite pool path")
	fs.StringVar(&c.Quality, "quality", c.Quality, "Initial reward quality (silver or gold)")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Write debug logs to the log file")
	fs.BoolVar(&c.Mute, "mute", c.Mute, "Start with audio muted")

	return fs.Parse(args)
}

// Validate rejects settings the wheel cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Authority {
	case AuthoritySQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			errs = append(errs, errors.New("db path is required for the sqlite authority"))
		}
	case AuthorityHTTP:
		if strings.TrimSpace(c.APIBase) == "" {
			errs = append(errs, errors.New("api base is required for the http authority"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown authority %q", c.Authority))
	}

	if _, err := authority.ParseQuality(c.Quality); err != nil {
		errs = append(errs, err)
	}
	if c.SpinDuration <= 0 {
		errs = append(errs, fmt.Errorf("spin duration must be positive, got %v", c.SpinDuration))
	}
	if c.MinTurns < constants.MinTurnsFloor {
		errs = append(errs, fmt.Errorf("min turns must be at least %d, got %d", constants.MinTurnsFloor, c.MinTurns))
	}
	if c.MaxTurns < c.MinTurns {
		errs = append(errs, fmt.Errorf("max turns %d below min turns %d", c.MaxTurns, c.MinTurns))
	}
	if c.BoundaryEpsilon <= 0 {
		errs = append(errs, fmt.Errorf("boundary epsilon must be positive, got %v", c.BoundaryEpsilon))
	}
	if c.FPS < constants.MinFPS || c.FPS > constants.MaxFPS {
		errs = append(errs, fmt.Errorf("fps must be within [%d, %d], got %d", constants.MinFPS, constants.MaxFPS, c.FPS))
	}
	if c.Volume < 0 || c.Volume > 100 {
		errs = append(errs, fmt.Errorf("volume must be within [0, 100], got %d", c.Volume))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, fmt.Errorf("api timeout must be positive, got %v", c.APITimeout))
	}
	if c.MaxAbsence < 1 {
		errs = append(errs, fmt.Errorf("max absence must be at least 1, got %d", c.MaxAbsence))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Criteria returns the initial spin criteria; valid after Validate
func (c Config) Criteria() authority.Criteria {
	return authority.Criteria{Quality: authority.Quality(c.Quality)}
}

// SlogLevel returns the configured log level, falling back to info
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
