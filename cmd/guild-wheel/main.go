package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/guild-wheel/app"
	"github.com/lixenwraith/guild-wheel/audio"
	"github.com/lixenwraith/guild-wheel/authority"
	"github.com/lixenwraith/guild-wheel/authority/httpapi"
	"github.com/lixenwraith/guild-wheel/authority/sqlstore"
	"github.com/lixenwraith/guild-wheel/config"
	"github.com/lixenwraith/guild-wheel/render"
	"github.com/lixenwraith/guild-wheel/spin"
	"github.com/lixenwraith/guild-wheel/terminal"
)

func main() {
	// Panic Recovery: Ensure terminal is reset even if the wheel crashes
	defer func() {
		if r := recover(); r != nil {
			crash("GUILD-WHEEL CRASHED", r)
		}
	}()

	cfg, err := config.Load("guild-wheel", os.Args[1:], ".env")
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "guild-wheel: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "guild-wheel: %v\n", err)
		os.Exit(1)
	}
}

// crash restores the terminal and prints the panic where the user can see it
func crash(what string, r any) {
	terminal.EmergencyReset(os.Stdout)
	// \r\n keeps the output straight if raw mode survived the reset
	fmt.Fprintf(os.Stderr, "\r\n\x1b[31m%s: %v\x1b[0m\r\n", what, r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", debug.Stack())
	os.Exit(1)
}

func run(cfg config.Config) error {
	logger, logFile, err := setupLogging(cfg.Debug, cfg.LogFile, cfg.SlogLevel())
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	auth, closeAuth, err := openAuthority(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAuth()

	if !terminal.IsInteractive() {
		return errors.New("stdin and stdout must be a terminal")
	}

	audioCfg := audio.DefaultConfig()
	audioCfg.Enabled = cfg.Audio
	audioCfg.MasterVolume = float64(cfg.Volume) / 100
	sounds := audio.NewSoundManager(audioCfg)
	if err := sounds.Initialize(); err != nil {
		// Non-fatal, the wheel runs silent
		logger.Warn("audio unavailable", "error", err)
	}
	sounds.SetMuted(cfg.Mute)
	defer sounds.Cleanup()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	// Normal exit terminal cleanup
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault.Background(render.RgbBackground))
	screen.Clear()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wheelApp := app.New(screen, auth, app.Options{
		Criteria: cfg.Criteria(),
		FPS:      cfg.FPS,
		Logger:   logger,
		Sounds:   sounds,
		Spin: spin.Options{
			Duration:        cfg.SpinDuration,
			MinTurns:        cfg.MinTurns,
			MaxTurns:        cfg.MaxTurns,
			ZeroOffset:      cfg.ZeroOffset,
			BoundaryEpsilon: cfg.BoundaryEpsilon,
		},
		RefreshTimeout: cfg.APITimeout,
		CrashHandler: func(r any) {
			screen.Fini()
			crash("EVENT POLLER CRASHED", r)
		},
	})

	logger.Info("wheel started", "authority", cfg.Authority, "quality", cfg.Quality, "fps", cfg.FPS)
	err = wheelApp.Run(ctx)
	logger.Info("session stats", "stats", wheelApp.Stats())
	return err
}

// openAuthority connects the configured winner authority
func openAuthority(cfg config.Config, logger *slog.Logger) (authority.Authority, func(), error) {
	switch cfg.Authority {
	case config.AuthorityHTTP:
		client := httpapi.NewClient(&http.Client{Timeout: cfg.APITimeout}, cfg.APIBase, logger)
		return client, func() {}, nil
	default:
		store, err := sqlstore.Open(cfg.DBPath, sqlstore.Options{
			MaxAbsence: cfg.MaxAbsence,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open pool: %w", err)
		}
		// Members added since the last run join this cycle's pools
		if err := store.Sync(context.Background()); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("sync pool: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close pool", "error", err)
			}
		}, nil
	}
}
