package prizepool

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DailyPrizePool is the single pool document of one calendar date.
type DailyPrizePool struct {
	PoolID         string          `gorm:"column:pool_id;primaryKey;type:varchar(36)" json:"pool_id"`
	// Date is the pool's calendar date as YYYY-MM-DD.
	Date           string          `gorm:"column:pool_date;type:varchar(10);not null;uniqueIndex" json:"date"`
	// Campaigns holds the day's []Contribution.
	Campaigns      datatypes.JSON  `gorm:"column:campaigns" json:"campaigns"`
	CampaignCount  int             `gorm:"column:campaign_count;not null;default:0" json:"campaign_count"`
	TotalDailyPool decimal.Decimal `gorm:"column:total_daily_pool;type:numeric(20,2);not null;default:0" json:"total_daily_pool"`
	GamerShare     decimal.Decimal `gorm:"column:gamer_share;type:numeric(20,2);not null;default:0" json:"gamer_share"`
	PlatformFee    decimal.Decimal `gorm:"column:platform_fee;type:numeric(20,2);not null;default:0" json:"platform_fee"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

type Contribution struct {
	CampaignID  string          `json:"campaign_id"`
	BrandID     string          `json:"brand_id"`
	PackageType string          `json:"package_type"`
	Amount      decimal.Decimal `json:"amount"`
	RateSource  string          `json:"rate_source"`
	Exhausted   bool            `json:"exhausted"`
}

// DailyRunResult reports an aggregation run. Created is false when the date
// had already been aggregated and nothing was debited.
type DailyRunResult struct {
	Pool          *DailyPrizePool `json:"pool"`
	Contributions []Contribution  `json:"contributions"`
	Created       bool            `json:"created"`
	Failed        []string        `json:"failed,omitempty"`
}

const (
	RateSourceDailyAllocation = "daily_allocation"
	RateSourceLegacy          = "legacy_rate"
)
