package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lixenwraith/guild-wheel/authority"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("test", nil, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Authority != AuthoritySQLite {
		t.Errorf("authority = %q, want %q", cfg.Authority, AuthoritySQLite)
	}
	if cfg.SpinDuration != 3*time.Second {
		t.Errorf("spin duration = %v, want 3s", cfg.SpinDuration)
	}
	if cfg.MinTurns != 3 || cfg.MaxTurns != 5 {
		t.Errorf("turns = %d..%d, want 3..5", cfg.MinTurns, cfg.MaxTurns)
	}
	if cfg.BoundaryEpsilon != 0.02 || cfg.FPS != 60 {
		t.Errorf("epsilon=%v fps=%d, want 0.02 and 60", cfg.BoundaryEpsilon, cfg.FPS)
	}
	if !cfg.Audio || cfg.Debug {
		t.Errorf("audio=%v debug=%v, want audio on and debug off", cfg.Audio, cfg.Debug)
	}
	if cfg.Criteria().Quality != authority.QualitySilver {
		t.Errorf("criteria = %+v, want silver", cfg.Criteria())
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("level = %v, want info", cfg.SlogLevel())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GUILD_WHEEL_AUTHORITY", "http")
	t.Setenv("GUILD_WHEEL_API_BASE", "https://guild.example")
	t.Setenv("GUILD_WHEEL_SPIN_DURATION", "1500ms")
	t.Setenv("GUILD_WHEEL_QUALITY", "gold")
	t.Setenv("GUILD_WHEEL_LOG_LEVEL", "debug")
	t.Setenv("GUILD_WHEEL_AUDIO", "false")

	cfg, err := Load("test", nil, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Authority != AuthorityHTTP || cfg.APIBase != "https://guild.example" {
		t.Errorf("unexpected authority settings %q %q", cfg.Authority, cfg.APIBase)
	}
	if cfg.SpinDuration != 1500*time.Millisecond {
		t.Errorf("spin duration = %v, want 1.5s", cfg.SpinDuration)
	}
	if cfg.Criteria().Quality != authority.QualityGold {
		t.Errorf("quality = %q, want gold", cfg.Quality)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", cfg.SlogLevel())
	}
	if cfg.Audio {
		t.Error("expected audio disabled from env")
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("GUILD_WHEEL_DB_PATH", "from-env.db")
	t.Setenv("GUILD_WHEEL_QUALITY", "gold")

	cfg, err := Load("test", []string{"-db", "from-flag.db", "-quality", "silver", "-mute", "-debug"}, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "from-flag.db" {
		t.Errorf("db = %q, want flag value", cfg.DBPath)
	}
	if cfg.Quality != "silver" {
		t.Errorf("quality = %q, want flag value", cfg.Quality)
	}
	if !cfg.Mute || !cfg.Debug {
		t.Errorf("mute=%v debug=%v, want muted with debug", cfg.Mute, cfg.Debug)
	}
	if !cfg.Audio {
		t.Error("-mute must keep the audio device enabled so sound can be turned back on")
	}
}

func TestLoadDotenvDoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "GUILD_WHEEL_FPS=30\nGUILD_WHEEL_MIN_TURNS=4\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("GUILD_WHEEL_MIN_TURNS", "6")
	t.Setenv("GUILD_WHEEL_MAX_TURNS", "8")
	t.Cleanup(func() { _ = os.Unsetenv("GUILD_WHEEL_FPS") })

	cfg, err := Load("test", nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FPS != 30 {
		t.Errorf("fps = %d, want 30 from dotenv", cfg.FPS)
	}
	if cfg.MinTurns != 6 {
		t.Errorf("min turns = %d, want env value 6", cfg.MinTurns)
	}
}

func TestLoadDotenvMissingFileIgnored(t *testing.T) {
	if err := LoadDotenv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("expected missing dotenv to be ignored, got %v", err)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("GUILD_WHEEL_FPS", "not-an-int")

	_, err := Load("test", nil, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("test", nil, "")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown authority", func(c *Config) { c.Authority = "carrier-pigeon" }, "unknown authority"},
		{"missing db", func(c *Config) { c.DBPath = " " }, "db path"},
		{"missing api", func(c *Config) { c.Authority = AuthorityHTTP; c.APIBase = "" }, "api base"},
		{"bad quality", func(c *Config) { c.Quality = "bronze" }, "unknown quality"},
		{"zero duration", func(c *Config) { c.SpinDuration = 0 }, "spin duration"},
		{"too few turns", func(c *Config) { c.MinTurns = 1 }, "min turns"},
		{"max below min", func(c *Config) { c.MaxTurns = 2 }, "max turns"},
		{"negative epsilon", func(c *Config) { c.BoundaryEpsilon = -0.1 }, "epsilon"},
		{"zero epsilon", func(c *Config) { c.BoundaryEpsilon = 0 }, "epsilon"},
		{"fps too high", func(c *Config) { c.FPS = 1000 }, "fps"},
		{"volume", func(c *Config) { c.Volume = 101 }, "volume"},
		{"timeout", func(c *Config) { c.APITimeout = 0 }, "api timeout"},
		{"absence", func(c *Config) { c.MaxAbsence = 0 }, "max absence"},
		{"log level", func(c *Config) { c.LogLevel = "chatty" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseFlagsRejectsUnknown(t *testing.T) {
	var cfg Config
	if err := cfg.ParseFlags("test", []string{"-nope"}); err == nil {
		t.Error("expected unknown flag error")
	}
}
