package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrOptimisticLock      = errors.New("optimistic lock error")
	ErrInsufficientBudget  = errors.New("insufficient campaign budget")
)

type Repository interface {
	Create(ctx context.Context, c *Campaign) error
	Get(ctx context.Context, campaignID string) (*Campaign, error)
	GetWithTx(ctx context.Context, tx *gorm.DB, campaignID string) (*Campaign, error)
	ListByBrand(ctx context.Context, brandID string) ([]Campaign, error)
	ListContributing(ctx context.Context, at time.Time) ([]Campaign, error)
	CreateTransaction(ctx context.Context, t *Transaction) error
	GetTransactionByReference(ctx context.Context, reference string) (*Transaction, error)
	MarkTransactionFailed(ctx context.Context, reference string, gatewayStatus string) error
	Activate(ctx context.Context, reference string, amount decimal.Decimal, now time.Time) (*ActivationResult, error)
	Debit(ctx context.Context, tx *gorm.DB, c *Campaign, amount decimal.Decimal) error
	EndExpired(ctx context.Context, now time.Time) (int64, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, c *Campaign) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) Get(ctx context.Context, campaignID string) (*Campaign, error) {
	return getCampaign(r.db.WithContext(ctx), campaignID)
}

func (r *RepositoryImpl) GetWithTx(ctx context.Context, tx *gorm.DB, campaignID string) (*Campaign, error) {
	return getCampaign(tx.WithContext(ctx), campaignID)
}

func getCampaign(db *gorm.DB, campaignID string) (*Campaign, error) {
	var c Campaign
	err := db.Where("campaign_id = ?", campaignID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &c, nil
}

func (r *RepositoryImpl) ListByBrand(ctx context.Context, brandID string) ([]Campaign, error) {
	var campaigns []Campaign
	err := r.db.WithContext(ctx).
		Where("brand_id = ?", brandID).
		Order("created_at DESC").
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

// ListContributing returns paid, active campaigns whose window contains at
// and which still hold budget.
func (r *RepositoryImpl) ListContributing(ctx context.Context, at time.Time) ([]Campaign, error) {
	at = at.UTC()
	var campaigns []Campaign
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status = ?", StatusActive, PaymentStatusPaid).
		Where("start_date <= ? AND end_date >= ?", at, at).
		Where("budget_remaining > 0").
		Order("campaign_id").
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contributing campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *RepositoryImpl) CreateTransaction(ctx context.Context, t *Transaction) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) GetTransactionByReference(ctx context.Context, reference string) (*Transaction, error) {
	return getTransaction(r.db.WithContext(ctx), reference)
}

func getTransaction(db *gorm.DB, reference string) (*Transaction, error) {
	var t Transaction
	err := db.Where("reference = ?", reference).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

// MarkTransactionFailed only moves a pending transaction; a transaction that
// already succeeded stays successful.
func (r *RepositoryImpl) MarkTransactionFailed(ctx context.Context, reference string, gatewayStatus string) error {
	result := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("reference = ? AND status = ?", reference, TransactionPending).
		Updates(map[string]interface{}{
			"status":         TransactionFailed,
			"gateway_status": gatewayStatus,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark transaction failed: %w", result.Error)
	}
	return nil
}

// Activate applies a confirmed charge to the campaign behind reference. Both
// the transaction and the campaign move with compare-and-set updates, so a
// webhook and a manual verify racing on the same reference activate once.
func (r *RepositoryImpl) Activate(ctx context.Context, reference string, amount decimal.Decimal, now time.Time) (*ActivationResult, error) {
	now = now.UTC()
	result := &ActivationResult{}

	err := r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		t, err := getTransaction(dbtx, reference)
		if err != nil {
			return err
		}

		updated := dbtx.Model(&Transaction{}).
			Where("reference = ? AND status <> ?", reference, TransactionSuccess).
			Updates(map[string]interface{}{
				"status":         TransactionSuccess,
				"gateway_status": "success",
				"amount":         amount,
				"verified_at":    now,
				"updated_at":     now,
			})
		if updated.Error != nil {
			return fmt.Errorf("failed to mark transaction success: %w", updated.Error)
		}

		c, err := getCampaign(dbtx, t.CampaignID)
		if err != nil {
			return err
		}
		if updated.RowsAffected == 0 || c.Status != StatusDraft {
			result.Campaign = c
			result.AlreadyActive = true
			return nil
		}

		end := now.Add(time.Duration(c.TimeLimit * float64(time.Hour)))
		daily := dailyAllocationFor(amount, c.TimeLimit)

		activated := dbtx.Model(&Campaign{}).
			Where("campaign_id = ? AND status = ? AND payment_status <> ?", c.CampaignID, StatusDraft, PaymentStatusPaid).
			Updates(map[string]interface{}{
				"total_budget":     amount,
				"budget_used":      decimal.Zero,
				"budget_remaining": amount,
				"daily_allocation": daily,
				"start_date":       now,
				"end_date":         end,
				"status":           StatusActive,
				"payment_status":   PaymentStatusPaid,
				"version":          gorm.Expr("version + 1"),
				"updated_at":       now,
			})
		if activated.Error != nil {
			return fmt.Errorf("failed to activate campaign: %w", activated.Error)
		}
		result.AlreadyActive = activated.RowsAffected == 0

		c, err = getCampaign(dbtx, t.CampaignID)
		if err != nil {
			return err
		}
		result.Campaign = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Debit moves amount from budget_remaining to budget_used under the
// campaign's version. The caller supplies the transaction.
func (r *RepositoryImpl) Debit(ctx context.Context, tx *gorm.DB, c *Campaign, amount decimal.Decimal) error {
	if c.BudgetRemaining.LessThan(amount) {
		return ErrInsufficientBudget
	}

	newUsed := c.BudgetUsed.Add(amount)
	newRemaining := c.BudgetRemaining.Sub(amount)

	result := tx.WithContext(ctx).Model(&Campaign{}).
		Where("campaign_id = ? AND version = ?", c.CampaignID, c.Version).
		Updates(map[string]interface{}{
			"budget_used":      newUsed,
			"budget_remaining": newRemaining,
			"version":          gorm.Expr("version + 1"),
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to debit campaign budget: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	c.BudgetUsed = newUsed
	c.BudgetRemaining = newRemaining
	c.Version++
	return nil
}

func (r *RepositoryImpl) EndExpired(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	result := r.db.WithContext(ctx).Model(&Campaign{}).
		Where("status = ? AND end_date < ?", StatusActive, now).
		Updates(map[string]interface{}{
			"status":     StatusEnded,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to end expired campaigns: %w", result.Error)
	}
	return result.RowsAffected, nil
}
