package payout

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Payout is the amount owed to one ranked player for one week.
type Payout struct {
	PayoutID               string          `gorm:"column:payout_id;primaryKey;type:varchar(36)" json:"payout_id"`
	UserID                 string          `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex:idx_payout_user_week" json:"user_id"`
	WeekKey                string          `gorm:"column:week_key;type:varchar(30);not null;uniqueIndex:idx_payout_user_week;index" json:"week_key"`
	Position               int             `gorm:"column:position;not null" json:"position"`
	Amount                 decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null" json:"amount"`
	DistributionPercentage decimal.Decimal `gorm:"column:distribution_percentage;type:numeric(6,3);not null" json:"distribution_percentage"`
	Status                 string          `gorm:"column:status;type:varchar(20);not null;index" json:"status"` // "pending", "processed", "paid", "failed"
	ProcessedAt            *time.Time      `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Leaderboard is the stored snapshot of one ranking period. Recomputing a
// period replaces its entries.
type Leaderboard struct {
	LeaderboardID string         `gorm:"column:leaderboard_id;primaryKey;type:varchar(36)" json:"leaderboard_id"`
	Type          string         `gorm:"column:type;type:varchar(20);not null;uniqueIndex:idx_leaderboard_period" json:"type"`
	PeriodKey     string         `gorm:"column:period_key;type:varchar(30);not null;uniqueIndex:idx_leaderboard_period" json:"period_key"`
	Entries       datatypes.JSON `gorm:"column:entries" json:"entries"` // []LeaderboardEntry
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

type LeaderboardEntry struct {
	Position      int    `json:"position"`
	UserID        string `json:"user_id"`
	PuzzlesSolved int64  `json:"puzzles_solved"`
	Points        int64  `json:"points"`
}

type WeeklyLeaderboard struct {
	WeekKey   string             `json:"week_key"`
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
	Entries   []LeaderboardEntry `json:"entries"`
}

// DistributionResult reports a weekly distribution run. Unallocated is the
// part of the gamer share left over when fewer than ten players ranked.
type DistributionResult struct {
	WeekKey          string          `json:"week_key"`
	WeeklyGamerShare decimal.Decimal `json:"weekly_gamer_share"`
	Distributed      decimal.Decimal `json:"distributed"`
	Unallocated      decimal.Decimal `json:"unallocated"`
	Payouts          []Payout        `json:"payouts"`
	RemovedStale     int64           `json:"removed_stale"`
}

const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusPaid      = "paid"
	StatusFailed    = "failed"
)

const LeaderboardTypeWeekly = "weekly"

const (
	LeaderboardSize = 100
	PaidPositions   = 10
)
