package sqlstore

import (
	"time"

	"github.com/lixenwraith/guild-wheel/authority"
)

// Guild ranks, earned by time in guild except Maester
const (
	RankBookWorm = "Book Worm"
	RankScholar  = "Scholar"
	RankSage     = "Sage"
	RankMaester  = "Maester"
)

const (
	silverEligibilityDays = 30
	goldEligibilityDays   = 90
)

// Member is a guild member as stored in the pool
type Member struct {
	DiscordID    string    `json:"discord_id"`
	Username     string    `json:"username"`
	JoinDate     time.Time `json:"join_date"`
	IsOfficer    bool      `json:"is_officer"`
	AbsenceCount int       `json:"absence_count,omitempty"`
}

// DaysInGuild counts whole days since joining
func (m Member) DaysInGuild(now time.Time) int {
	if now.Before(m.JoinDate) {
		return 0
	}
	return int(now.Sub(m.JoinDate).Hours() / 24)
}

// Rank derives the member's rank; officers are always Maester
func (m Member) Rank(now time.Time) string {
	if m.IsOfficer {
		return RankMaester
	}
	switch days := m.DaysInGuild(now); {
	case days < silverEligibilityDays:
		return RankBookWorm
	case days < goldEligibilityDays:
		return RankScholar
	default:
		return RankSage
	}
}

// EligibleFor reports whether the member's rank earns rewards of quality q
func (m Member) EligibleFor(q authority.Quality, now time.Time) bool {
	switch m.Rank(now) {
	case RankMaester, RankSage:
		return q == authority.QualitySilver || q == authority.QualityGold
	case RankScholar:
		return q == authority.QualitySilver
	default:
		return false
	}
}
