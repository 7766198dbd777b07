// Package authority defines the port through which the wheel obtains its
// candidates and the authoritative winner, plus the sentinel errors that
// adapters wrap so the controller can classify failures.
//
// The wheel never chooses a winner itself. Adapters in the sub-packages talk
// to the guild web API (httpapi) or to a local SQLite pool (sqlstore).
package authority

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lixenwraith/guild-wheel/wheel"
)

// Quality names a reward list; each has its own eligibility pool
type Quality string

const (
	QualitySilver Quality = "silver"
	QualityGold   Quality = "gold"
)

// ParseQuality validates a quality name
func ParseQuality(s string) (Quality, error) {
	switch Quality(s) {
	case QualitySilver, QualityGold:
		return Quality(s), nil
	default:
		return "", fmt.Errorf("unknown quality %q", s)
	}
}

// Criteria selects the pool a spin draws from
type Criteria struct {
	Quality Quality
}

// Sentinel errors, wrapped by adapters with %w
var (
	ErrNoEligibleCandidates = errors.New("no eligible candidates")
	ErrUnreachable          = errors.New("authority unreachable")
	ErrRejected             = errors.New("authority rejected request")
)

// PoolStatus summarises a reward list after a pick
type PoolStatus struct {
	Quality           Quality
	EligibleCount     int
	CompletedCount    int
	InactiveCount     int
	CompensationCount int
	CycleStart        time.Time
	Reset             bool
}

// Reward is the payload delivered alongside the winner
type Reward struct {
	Quality      Quality
	HistoryID    string
	Compensation bool
	AwardedAt    time.Time
	Status       PoolStatus
}

// Result is the authoritative outcome of one pick; final once received
type Result struct {
	WinnerID string
	Winner   wheel.Candidate
	Reward   Reward
}

// Authority is the external source of candidates and winners
// PickWinner is not idempotent: each call may remove the winner from future pools
type Authority interface {
	ListEligible(ctx context.Context, c Criteria) (wheel.CandidateSet, error)
	PickWinner(ctx context.Context, c Criteria) (Result, error)
}
