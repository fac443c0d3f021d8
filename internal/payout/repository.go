package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPayoutNotFound      = errors.New("payout not found")
	ErrLeaderboardNotFound = errors.New("leaderboard not found")
)

type Repository interface {
	SaveLeaderboard(ctx context.Context, lb *Leaderboard) error
	GetLeaderboard(ctx context.Context, lbType, periodKey string) (*Leaderboard, error)
	UpsertPending(ctx context.Context, tx *gorm.DB, payouts []Payout) error
	DeleteStalePending(ctx context.Context, tx *gorm.DB, weekKey string, keepUserIDs []string) (int64, error)
	CountFinalized(ctx context.Context, tx *gorm.DB, weekKey string) (int64, error)
	ListByWeek(ctx context.Context, weekKey string) ([]Payout, error)
	Get(ctx context.Context, db *gorm.DB, payoutID string) (*Payout, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, payoutID string, now time.Time) (bool, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) SaveLeaderboard(ctx context.Context, lb *Leaderboard) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "period_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entries", "updated_at"}),
	}).Create(lb).Error
	if err != nil {
		return fmt.Errorf("failed to save leaderboard: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) GetLeaderboard(ctx context.Context, lbType, periodKey string) (*Leaderboard, error) {
	var lb Leaderboard
	err := r.db.WithContext(ctx).
		Where("type = ? AND period_key = ?", lbType, periodKey).
		First(&lb).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeaderboardNotFound
		}
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return &lb, nil
}

// UpsertPending writes payouts keyed on (user_id, week_key). An existing row
// is only overwritten while it is still pending.
func (r *RepositoryImpl) UpsertPending(ctx context.Context, tx *gorm.DB, payouts []Payout) error {
	if len(payouts) == 0 {
		return nil
	}
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"position", "amount", "distribution_percentage", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "payouts", Name: "status"}, Value: StatusPending},
		}},
	}).Create(&payouts).Error
	if err != nil {
		return fmt.Errorf("failed to upsert payouts: %w", err)
	}
	return nil
}

// DeleteStalePending removes pending payouts of the week whose user is not in
// keepUserIDs.
func (r *RepositoryImpl) DeleteStalePending(ctx context.Context, tx *gorm.DB, weekKey string, keepUserIDs []string) (int64, error) {
	q := tx.WithContext(ctx).Where("week_key = ? AND status = ?", weekKey, StatusPending)
	if len(keepUserIDs) > 0 {
		q = q.Where("user_id NOT IN ?", keepUserIDs)
	}
	result := q.Delete(&Payout{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete stale payouts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountFinalized counts payouts of the week that have left pending.
func (r *RepositoryImpl) CountFinalized(ctx context.Context, tx *gorm.DB, weekKey string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&Payout{}).
		Where("week_key = ? AND status <> ?", weekKey, StatusPending).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count finalized payouts: %w", err)
	}
	return count, nil
}

func (r *RepositoryImpl) ListByWeek(ctx context.Context, weekKey string) ([]Payout, error) {
	var payouts []Payout
	err := r.db.WithContext(ctx).
		Where("week_key = ?", weekKey).
		Order("position ASC").
		Find(&payouts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	return payouts, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, db *gorm.DB, payoutID string) (*Payout, error) {
	if db == nil {
		db = r.db
	}
	var p Payout
	err := db.WithContext(ctx).Where("payout_id = ?", payoutID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}
	return &p, nil
}

// MarkProcessed moves a payout from pending to processed. It reports false
// when the payout was not pending.
func (r *RepositoryImpl) MarkProcessed(ctx context.Context, tx *gorm.DB, payoutID string, now time.Time) (bool, error) {
	now = now.UTC()
	result := tx.WithContext(ctx).Model(&Payout{}).
		Where("payout_id = ? AND status = ?", payoutID, StatusPending).
		Updates(map[string]interface{}{
			"status":       StatusProcessed,
			"processed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to process payout: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
