// wheel-seed loads guild members into the local reward pool and reports
// the state of each reward list.
//
// Usage:
//
//	wheel-seed -db guild-wheel.db -members members.json [-absent id,id] [-present id,id] [-force gold]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lixenwraith/guild-wheel/authority"
	"github.com/lixenwraith/guild-wheel/authority/sqlstore"
	"github.com/lixenwraith/guild-wheel/config"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "wheel-seed: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	db      string
	members string
	absent  string
	present string
	force   string
	verbose bool
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if err := config.LoadDotenv(".env"); err != nil {
		return err
	}
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return err
	}

	var opts options
	fs := flag.NewFlagSet("wheel-seed", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&opts.db, "db", cfg.DBPath, "SQLite pool path")
	fs.StringVar(&opts.members, "members", "", "JSON file with an array of members to add")
	fs.StringVar(&opts.absent, "absent", "", "Comma-separated member IDs to record one absence for")
	fs.StringVar(&opts.present, "present", "", "Comma-separated member IDs who attended; clears their absences")
	fs.StringVar(&opts.force, "force", "", "Force-complete the given reward list (silver or gold)")
	fs.BoolVar(&opts.verbose, "v", false, "Log store activity to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := slog.New(slog.DiscardHandler)
	if opts.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	store, err := sqlstore.Open(opts.db, sqlstore.Options{MaxAbsence: cfg.MaxAbsence, Logger: logger})
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.members != "" {
		added, skipped, err := addMembers(ctx, store, opts.members)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "members: %d added, %d already present\n", added, skipped)
	}

	for _, id := range splitIDs(opts.absent) {
		count, err := store.RecordAbsence(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "absence: %s now at %d\n", id, count)
	}

	for _, id := range splitIDs(opts.present) {
		if err := store.RecordParticipation(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "present: %s absences cleared\n", id)
	}

	if err := store.Sync(ctx); err != nil {
		return err
	}

	if opts.force != "" {
		q, err := authority.ParseQuality(opts.force)
		if err != nil {
			return err
		}
		if err := store.ForceComplete(ctx, q); err != nil {
			return err
		}
		fmt.Fprintf(out, "force: %s list reset\n", q)
	}

	for _, q := range []authority.Quality{authority.QualitySilver, authority.QualityGold} {
		st, err := store.Status(ctx, q)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-6s eligible=%d completed=%d inactive=%d compensation=%d\n",
			q, st.EligibleCount, st.CompletedCount, st.InactiveCount, st.CompensationCount)
	}
	return nil
}

func addMembers(ctx context.Context, store *sqlstore.Store, path string) (added, skipped int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read members: %w", err)
	}
	var members []sqlstore.Member
	if err := json.Unmarshal(data, &members); err != nil {
		return 0, 0, fmt.Errorf("parse members: %w", err)
	}
	for _, m := range members {
		switch err := store.AddMember(ctx, m); {
		case err == nil:
			added++
		case errors.Is(err, sqlstore.ErrAlreadyExists):
			skipped++
		default:
			return added, skipped, err
		}
	}
	return added, skipped, nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
