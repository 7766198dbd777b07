// Package sqlstore implements authority.Authority over a local SQLite reward pool.
//
// Each quality has its own pool. A pick first serves the compensation queue,
// otherwise draws uniformly from the eligible entries and marks the winner
// completed. When the last eligible entry completes the pool resets: inactive
// members move to the compensation queue and eligibility is rebuilt from ranks.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/lixenwraith/guild-wheel/authority"
	"github.com/lixenwraith/guild-wheel/constants"
	"github.com/lixenwraith/guild-wheel/vmath"
	"github.com/lixenwraith/guild-wheel/wheel"
)

const (
	statusEligible  = "eligible"
	statusCompleted = "completed"
	statusInactive  = "inactive"

	// statusRetired holds a past-limit member out of a rebuilt cycle; they
	// were compensated at the reset and are owed nothing more
	statusRetired = "retired"

	compensationNote = "Compensation for missed events"
)

var (
	ErrAlreadyExists = errors.New("member already exists")
	ErrNotFound      = errors.New("member not found")
	// ErrCannotForceComplete is returned when a pool has no inactive members to compensate
	ErrCannotForceComplete = errors.New("pool cannot be force completed: no inactive members")
)

var qualities = []authority.Quality{authority.QualitySilver, authority.QualityGold}

// Options tunes a Store; zero values take defaults
type Options struct {
	// MaxAbsence is how many recorded absences make a member inactive
	MaxAbsence int
	Now        func() time.Time
	Rand       interface{ Intn(n int) int }
	Logger     *slog.Logger
}

// Store persists reward pools in SQLite
type Store struct {
	sqlDB      *sql.DB
	maxAbsence int
	now        func() time.Time
	rnd        interface{ Intn(n int) int }
	logger     *slog.Logger
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite pool store and applies the schema
func Open(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Picks are read-then-write transactions; one connection serialises them
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{
		sqlDB:      sqlDB,
		maxAbsence: opts.MaxAbsence,
		now:        opts.Now,
		rnd:        opts.Rand,
		logger:     opts.Logger,
	}
	if s.maxAbsence <= 0 {
		s.maxAbsence = constants.DefaultMaxAbsence
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rnd == nil {
		s.rnd = vmath.NewSeededFastRand()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AddMember inserts a member; call Sync to place them in pools
func (s *Store) AddMember(ctx context.Context, m Member) error {
	id := strings.TrimSpace(m.DiscordID)
	if id == "" {
		return fmt.Errorf("discord id is required")
	}
	username := strings.TrimSpace(m.Username)
	if username == "" {
		username = id
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO member (discord_id, username, join_date, is_officer, absence_count, added_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, username, toMillis(m.JoinDate), boolInt(m.IsOfficer), m.AbsenceCount, toMillis(s.now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, id)
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// Member loads one member by Discord ID
func (s *Store) Member(ctx context.Context, discordID string) (Member, error) {
	var (
		m       Member
		joined  int64
		officer int
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT discord_id, username, join_date, is_officer, absence_count FROM member WHERE discord_id = ?`,
		discordID,
	).Scan(&m.DiscordID, &m.Username, &joined, &officer, &m.AbsenceCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, fmt.Errorf("%w: %s", ErrNotFound, discordID)
	}
	if err != nil {
		return Member{}, fmt.Errorf("get member: %w", err)
	}
	m.JoinDate = fromMillis(joined)
	m.IsOfficer = officer != 0
	return m, nil
}

// RecordAbsence counts a missed event; at the limit the member goes inactive
// in every pool where they are still eligible
func (s *Store) RecordAbsence(ctx context.Context, discordID string) (int, error) {
	var count int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE member SET absence_count = absence_count + 1 WHERE discord_id = ?`, discordID)
		if err != nil {
			return fmt.Errorf("record absence: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, discordID)
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT absence_count FROM member WHERE discord_id = ?`, discordID).Scan(&count); err != nil {
			return fmt.Errorf("read absence count: %w", err)
		}
		if count >= s.maxAbsence {
			if _, err := tx.ExecContext(ctx,
				`UPDATE pool_entry SET status = ? WHERE member_id = ? AND status = ?`,
				statusInactive, discordID, statusEligible); err != nil {
				return fmt.Errorf("mark inactive: %w", err)
			}
		}
		return nil
	})
	return count, err
}

// RecordParticipation clears a member's absences. A member retired from the
// current cycle becomes eligible again on the next Sync; one already inactive
// in this cycle stays inactive until the reset compensates them.
func (s *Store) RecordParticipation(ctx context.Context, discordID string) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE member SET absence_count = 0 WHERE discord_id = ?`, discordID)
	if err != nil {
		return fmt.Errorf("record participation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, discordID)
	}
	return nil
}

// MarkInactive takes a member out of the eligible entries of one pool
func (s *Store) MarkInactive(ctx context.Context, q authority.Quality, discordID string) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE pool_entry SET status = ? WHERE list_type = ? AND member_id = ? AND status = ?`,
		statusInactive, string(q), discordID, statusEligible)
	if err != nil {
		return fmt.Errorf("mark inactive: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s not eligible for %s", ErrNotFound, discordID, q)
	}
	return nil
}

// Sync rebuilds eligibility in every pool from current ranks and absences
func (s *Store) Sync(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range qualities {
			if err := s.syncPool(ctx, tx, q, false); err != nil {
				return fmt.Errorf("sync %s pool: %w", q, err)
			}
		}
		return nil
	})
}

// syncPool adds newly eligible members, drops members whose rank no longer
// qualifies and retires eligible members past the absence limit. A rebuild
// after a reset enters past-limit members as retired so they are not queued
// for compensation again at the next reset.
func (s *Store) syncPool(ctx context.Context, tx *sql.Tx, q authority.Quality, rebuild bool) error {
	now := s.now()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO pool_cycle (list_type, cycle_start, last_reset) VALUES (?, ?, ?)`,
		string(q), toMillis(now), toMillis(now)); err != nil {
		return err
	}

	members, err := s.allMembers(ctx, tx)
	if err != nil {
		return err
	}
	for _, m := range members {
		switch {
		case !m.EligibleFor(q, now):
			_, err = tx.ExecContext(ctx,
				`DELETE FROM pool_entry WHERE list_type = ? AND member_id = ? AND status IN (?, ?)`,
				string(q), m.DiscordID, statusEligible, statusRetired)
		case m.AbsenceCount >= s.maxAbsence && rebuild:
			_, err = tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO pool_entry (list_type, member_id, status) VALUES (?, ?, ?)`,
				string(q), m.DiscordID, statusRetired)
		case m.AbsenceCount >= s.maxAbsence:
			if _, err = tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO pool_entry (list_type, member_id, status) VALUES (?, ?, ?)`,
				string(q), m.DiscordID, statusInactive); err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE pool_entry SET status = ? WHERE list_type = ? AND member_id = ? AND status = ?`,
				statusInactive, string(q), m.DiscordID, statusEligible)
		default:
			if _, err = tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO pool_entry (list_type, member_id, status) VALUES (?, ?, ?)`,
				string(q), m.DiscordID, statusEligible); err != nil {
				return err
			}
			// A retired member who attends again rejoins the cycle
			_, err = tx.ExecContext(ctx,
				`UPDATE pool_entry SET status = ? WHERE list_type = ? AND member_id = ? AND status = ?`,
				statusEligible, string(q), m.DiscordID, statusRetired)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ListEligible returns the compensation queue in FIFO order followed by the
// eligible entries in join order, so every possible winner is on the wheel
func (s *Store) ListEligible(ctx context.Context, c authority.Criteria) (wheel.CandidateSet, error) {
	if _, err := authority.ParseQuality(string(c.Quality)); err != nil {
		return wheel.CandidateSet{}, fmt.Errorf("%w: %w", authority.ErrRejected, err)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT m.discord_id, m.username, m.join_date, m.is_officer, m.absence_count, 1 AS comp, q.seq AS ord
		   FROM compensation_queue q JOIN member m ON m.discord_id = q.member_id
		  WHERE q.list_type = ?
		 UNION ALL
		 SELECT m.discord_id, m.username, m.join_date, m.is_officer, m.absence_count, 0 AS comp, m.seq AS ord
		   FROM pool_entry e JOIN member m ON m.discord_id = e.member_id
		  WHERE e.list_type = ? AND e.status = ?
		    AND e.member_id NOT IN (SELECT member_id FROM compensation_queue WHERE list_type = ?)
		 ORDER BY comp DESC, ord ASC`,
		string(c.Quality), string(c.Quality), statusEligible, string(c.Quality))
	if err != nil {
		return wheel.CandidateSet{}, fmt.Errorf("%w: list eligible: %w", authority.ErrUnreachable, err)
	}
	defer rows.Close()

	now := s.now()
	var items []wheel.Candidate
	for rows.Next() {
		var (
			m       Member
			joined  int64
			officer int
			comp    int
			ord     int64
		)
		if err := rows.Scan(&m.DiscordID, &m.Username, &joined, &officer, &m.AbsenceCount, &comp, &ord); err != nil {
			return wheel.CandidateSet{}, fmt.Errorf("%w: scan eligible: %w", authority.ErrUnreachable, err)
		}
		m.JoinDate = fromMillis(joined)
		m.IsOfficer = officer != 0
		items = append(items, candidateFor(m, comp != 0, now))
	}
	if err := rows.Err(); err != nil {
		return wheel.CandidateSet{}, fmt.Errorf("%w: list eligible: %w", authority.ErrUnreachable, err)
	}
	return wheel.NewCandidateSet(items)
}

// PickWinner draws and records a winner in one transaction
func (s *Store) PickWinner(ctx context.Context, c authority.Criteria) (authority.Result, error) {
	q, err := authority.ParseQuality(string(c.Quality))
	if err != nil {
		return authority.Result{}, fmt.Errorf("%w: %w", authority.ErrRejected, err)
	}

	var res authority.Result
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		now := s.now()

		winnerID, compensation, err := s.drawWinner(ctx, tx, q)
		if err != nil {
			return err
		}
		winner, err := memberTx(ctx, tx, winnerID)
		if err != nil {
			return err
		}

		historyID := uuid.NewString()
		notes := ""
		if compensation {
			notes = compensationNote
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO link_history (id, member_id, username, list_type, is_compensation, notes, awarded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			historyID, winner.DiscordID, winner.Username, string(q), boolInt(compensation), notes, toMillis(now)); err != nil {
			return fmt.Errorf("create link history: %w", err)
		}

		reset := false
		if !compensation {
			if _, err := tx.ExecContext(ctx,
				`UPDATE pool_entry SET status = ? WHERE list_type = ? AND member_id = ?`,
				statusCompleted, string(q), winnerID); err != nil {
				return fmt.Errorf("mark completed: %w", err)
			}
			remaining, err := countStatus(ctx, tx, q, statusEligible)
			if err != nil {
				return err
			}
			if remaining == 0 {
				if err := s.resetPool(ctx, tx, q); err != nil {
					return err
				}
				reset = true
			}
		}

		status, err := s.statusTx(ctx, tx, q)
		if err != nil {
			return err
		}
		status.Reset = reset

		res = authority.Result{
			WinnerID: winnerID,
			Winner:   candidateFor(winner, compensation, now),
			Reward: authority.Reward{
				Quality:      q,
				HistoryID:    historyID,
				Compensation: compensation,
				AwardedAt:    now,
				Status:       status,
			},
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, authority.ErrNoEligibleCandidates) {
			return authority.Result{}, err
		}
		return authority.Result{}, fmt.Errorf("%w: %w", authority.ErrUnreachable, err)
	}

	s.logger.InfoContext(ctx, "winner picked",
		"quality", q,
		"winner", res.WinnerID,
		"compensation", res.Reward.Compensation,
		"history_id", res.Reward.HistoryID,
		"reset", res.Reward.Status.Reset,
	)
	return res, nil
}

// drawWinner pops the compensation queue head or picks a random eligible entry
func (s *Store) drawWinner(ctx context.Context, tx *sql.Tx, q authority.Quality) (string, bool, error) {
	var (
		seq      int64
		memberID string
	)
	err := tx.QueryRowContext(ctx,
		`SELECT seq, member_id FROM compensation_queue WHERE list_type = ? ORDER BY seq LIMIT 1`,
		string(q)).Scan(&seq, &memberID)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `DELETE FROM compensation_queue WHERE seq = ?`, seq); err != nil {
			return "", false, fmt.Errorf("pop compensation queue: %w", err)
		}
		return memberID, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", false, fmt.Errorf("read compensation queue: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT e.member_id FROM pool_entry e JOIN member m ON m.discord_id = e.member_id
		  WHERE e.list_type = ? AND e.status = ? ORDER BY m.seq`,
		string(q), statusEligible)
	if err != nil {
		return "", false, fmt.Errorf("read eligible: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return "", false, fmt.Errorf("scan eligible: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", false, fmt.Errorf("read eligible: %w", err)
	}

	if len(ids) == 0 {
		return "", false, fmt.Errorf("%w: no eligible members available for %s links", authority.ErrNoEligibleCandidates, q)
	}
	return ids[s.rnd.Intn(len(ids))], false, nil
}

// resetPool starts a new cycle: inactive members are owed compensation,
// entries are cleared and eligibility is rebuilt
func (s *Store) resetPool(ctx context.Context, tx *sql.Tx, q authority.Quality) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO compensation_queue (list_type, member_id)
		 SELECT list_type, member_id FROM pool_entry WHERE list_type = ? AND status = ?`,
		string(q), statusInactive); err != nil {
		return fmt.Errorf("queue compensation: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pool_entry WHERE list_type = ?`, string(q)); err != nil {
		return fmt.Errorf("clear pool: %w", err)
	}
	now := toMillis(s.now())
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pool_cycle (list_type, cycle_start, last_reset) VALUES (?, ?, ?)
		 ON CONFLICT (list_type) DO UPDATE SET cycle_start = excluded.cycle_start, last_reset = excluded.last_reset`,
		string(q), now, now); err != nil {
		return fmt.Errorf("start cycle: %w", err)
	}
	if err := s.syncPool(ctx, tx, q, true); err != nil {
		return fmt.Errorf("rebuild pool: %w", err)
	}
	s.logger.InfoContext(ctx, "pool reset", "quality", q)
	return nil
}

// ForceComplete ends a cycle early when absentees hold it open: remaining
// eligible members go inactive and the pool resets
func (s *Store) ForceComplete(ctx context.Context, q authority.Quality) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		inactive, err := countStatus(ctx, tx, q, statusInactive)
		if err != nil {
			return err
		}
		if inactive == 0 {
			return ErrCannotForceComplete
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE pool_entry SET status = ? WHERE list_type = ? AND status = ?`,
			statusInactive, string(q), statusEligible); err != nil {
			return fmt.Errorf("retire eligible: %w", err)
		}
		return s.resetPool(ctx, tx, q)
	})
}

// Status summarises one pool
func (s *Store) Status(ctx context.Context, q authority.Quality) (authority.PoolStatus, error) {
	var st authority.PoolStatus
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		st, err = s.statusTx(ctx, tx, q)
		return err
	})
	return st, err
}

func (s *Store) statusTx(ctx context.Context, tx *sql.Tx, q authority.Quality) (authority.PoolStatus, error) {
	st := authority.PoolStatus{Quality: q}

	rows, err := tx.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM pool_entry WHERE list_type = ? GROUP BY status`, string(q))
	if err != nil {
		return st, fmt.Errorf("count pool: %w", err)
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return st, fmt.Errorf("scan pool count: %w", err)
		}
		switch status {
		case statusEligible:
			st.EligibleCount = n
		case statusCompleted:
			st.CompletedCount = n
		case statusInactive:
			st.InactiveCount = n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("count pool: %w", err)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM compensation_queue WHERE list_type = ?`, string(q)).Scan(&st.CompensationCount); err != nil {
		return st, fmt.Errorf("count compensation: %w", err)
	}

	var start int64
	err = tx.QueryRowContext(ctx, `SELECT cycle_start FROM pool_cycle WHERE list_type = ?`, string(q)).Scan(&start)
	switch {
	case err == nil:
		st.CycleStart = fromMillis(start)
	case !errors.Is(err, sql.ErrNoRows):
		return st, fmt.Errorf("read cycle: %w", err)
	}
	return st, nil
}

func (s *Store) allMembers(ctx context.Context, tx *sql.Tx) ([]Member, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT discord_id, username, join_date, is_officer, absence_count FROM member ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var (
			m       Member
			joined  int64
			officer int
		)
		if err := rows.Scan(&m.DiscordID, &m.Username, &joined, &officer, &m.AbsenceCount); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.JoinDate = fromMillis(joined)
		m.IsOfficer = officer != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

func memberTx(ctx context.Context, tx *sql.Tx, discordID string) (Member, error) {
	var (
		m       Member
		joined  int64
		officer int
	)
	err := tx.QueryRowContext(ctx,
		`SELECT discord_id, username, join_date, is_officer, absence_count FROM member WHERE discord_id = ?`,
		discordID).Scan(&m.DiscordID, &m.Username, &joined, &officer, &m.AbsenceCount)
	if err != nil {
		return Member{}, fmt.Errorf("get winner member: %w", err)
	}
	m.JoinDate = fromMillis(joined)
	m.IsOfficer = officer != 0
	return m, nil
}

func countStatus(ctx context.Context, tx *sql.Tx, q authority.Quality, status string) (int, error) {
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pool_entry WHERE list_type = ? AND status = ?`, string(q), status).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", status, err)
	}
	return n, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func candidateFor(m Member, compensation bool, now time.Time) wheel.Candidate {
	meta := map[string]string{
		"rank":          m.Rank(now),
		"days_in_guild": strconv.Itoa(m.DaysInGuild(now)),
	}
	if compensation {
		meta["compensation"] = "true"
	}
	return wheel.Candidate{ID: m.DiscordID, Label: m.Username, Meta: meta}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// Compile-time check
var _ authority.Authority = (*Store)(nil)
