package campaign

import (
	"time"

	"prizepool_service/internal/pricing"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Campaign struct {
	CampaignID           string              `gorm:"column:campaign_id;primaryKey;type:varchar(36)" json:"campaign_id"`
	BrandID              string              `gorm:"column:brand_id;type:varchar(36);not null;index" json:"brand_id"`
	Title                string              `gorm:"column:title;type:varchar(255);not null" json:"title"`
	GameType             string              `gorm:"column:game_type;type:varchar(30);not null" json:"game_type"`
	PackageType          pricing.PackageType `gorm:"column:package_type;type:varchar(20);not null" json:"package_type"`
	TimeLimit            float64             `gorm:"column:time_limit;not null" json:"time_limit"` // hours
	TotalQuestions       int                 `gorm:"column:total_questions;not null;default:0" json:"total_questions"`
	PaymentStatus        string              `gorm:"column:payment_status;type:varchar(20);not null;index" json:"payment_status"` // "unpaid", "paid", "partial"
	Status               string              `gorm:"column:status;type:varchar(20);not null;index" json:"status"`                 // "draft", "active", "ended"
	ExpectedChargeAmount decimal.Decimal     `gorm:"column:expected_charge_amount;type:numeric(20,2);not null" json:"expected_charge_amount"`
	TotalBudget          decimal.Decimal     `gorm:"column:total_budget;type:numeric(20,2);not null;default:0" json:"total_budget"`
	DailyAllocation      decimal.Decimal     `gorm:"column:daily_allocation;type:numeric(20,2);not null;default:0" json:"daily_allocation"`
	BudgetUsed           decimal.Decimal     `gorm:"column:budget_used;type:numeric(20,2);not null;default:0" json:"budget_used"`
	BudgetRemaining      decimal.Decimal     `gorm:"column:budget_remaining;type:numeric(20,2);not null;default:0" json:"budget_remaining"`
	StartDate            time.Time           `gorm:"column:start_date;not null" json:"start_date"`
	EndDate              time.Time           `gorm:"column:end_date;not null" json:"end_date"`
	Version              int                 `gorm:"column:version;not null;default:1" json:"-"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

type Transaction struct {
	TransactionID string          `gorm:"column:transaction_id;primaryKey;type:varchar(36)" json:"transaction_id"`
	CampaignID    string          `gorm:"column:campaign_id;type:varchar(36);not null;index" json:"campaign_id"`
	BrandID       string          `gorm:"column:brand_id;type:varchar(36);not null" json:"brand_id"`
	Email         string          `gorm:"column:email;type:varchar(255);not null" json:"email"`
	Reference     string          `gorm:"column:reference;type:varchar(100);not null;uniqueIndex" json:"reference"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null" json:"amount"`
	Status        string          `gorm:"column:status;type:varchar(20);not null" json:"status"` // "pending", "success", "failed"
	GatewayStatus string          `gorm:"column:gateway_status;type:varchar(50)" json:"gateway_status,omitempty"`
	Metadata      datatypes.JSON  `gorm:"column:metadata" json:"metadata,omitempty"`
	VerifiedAt    *time.Time      `gorm:"column:verified_at" json:"verified_at,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

type CreateCampaignRequest struct {
	BrandID        string              `json:"brand_id" binding:"required"`
	Title          string              `json:"title" binding:"required"`
	GameType       string              `json:"game_type" binding:"required"`
	PackageType    pricing.PackageType `json:"package_type" binding:"required"`
	TimeLimit      float64             `json:"time_limit" binding:"required"`
	TotalQuestions int                 `json:"total_questions"`
}

type CreateCampaignResponse struct {
	Campaign *Campaign     `json:"campaign"`
	Quote    pricing.Quote `json:"quote"`
}

type InitializePaymentResponse struct {
	AuthorizationURL string          `json:"authorization_url"`
	Reference        string          `json:"reference"`
	Amount           decimal.Decimal `json:"amount"`
}

// ActivationResult reports the campaign after a payment success. AlreadyActive
// is set when the success had been applied before.
type ActivationResult struct {
	Campaign      *Campaign `json:"campaign"`
	AlreadyActive bool      `json:"already_active"`
}

const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
)

const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusEnded  = "ended"
)

const (
	TransactionPending = "pending"
	TransactionSuccess = "success"
	TransactionFailed  = "failed"
)

// Contributing reports whether the campaign is paid, active, inside its
// window at the given instant and still holds budget.
func (c *Campaign) Contributing(at time.Time) bool {
	return c.Status == StatusActive &&
		c.PaymentStatus == PaymentStatusPaid &&
		!c.StartDate.After(at) &&
		!c.EndDate.Before(at) &&
		c.BudgetRemaining.IsPositive()
}
