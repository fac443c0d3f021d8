package prizepool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPoolNotFound = errors.New("prize pool not found")

type Repository interface {
	Claim(ctx context.Context, tx *gorm.DB, pool *DailyPrizePool) (bool, error)
	Save(ctx context.Context, tx *gorm.DB, pool *DailyPrizePool) error
	GetByDate(ctx context.Context, db *gorm.DB, date string) (*DailyPrizePool, error)
	ListBetween(ctx context.Context, fromDate, toDate string) ([]DailyPrizePool, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// Claim inserts the pool row for its date unless one exists. It reports
// whether this call created the row.
func (r *RepositoryImpl) Claim(ctx context.Context, tx *gorm.DB, pool *DailyPrizePool) (bool, error) {
	result := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pool_date"}},
		DoNothing: true,
	}).Create(pool)
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim prize pool date: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *RepositoryImpl) Save(ctx context.Context, tx *gorm.DB, pool *DailyPrizePool) error {
	result := tx.WithContext(ctx).
		Model(&DailyPrizePool{}).
		Where("pool_id = ?", pool.PoolID).
		Updates(map[string]interface{}{
			"campaigns":        pool.Campaigns,
			"campaign_count":   pool.CampaignCount,
			"total_daily_pool": pool.TotalDailyPool,
			"gamer_share":      pool.GamerShare,
			"platform_fee":     pool.PlatformFee,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save prize pool: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPoolNotFound
	}
	return nil
}

// GetByDate reads through db so callers inside a transaction can pass it.
func (r *RepositoryImpl) GetByDate(ctx context.Context, db *gorm.DB, date string) (*DailyPrizePool, error) {
	if db == nil {
		db = r.db
	}
	var pool DailyPrizePool
	err := db.WithContext(ctx).Where("pool_date = ?", date).First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get prize pool: %w", err)
	}
	return &pool, nil
}

func (r *RepositoryImpl) ListBetween(ctx context.Context, fromDate, toDate string) ([]DailyPrizePool, error) {
	var pools []DailyPrizePool
	err := r.db.WithContext(ctx).
		Where("pool_date >= ? AND pool_date <= ?", fromDate, toDate).
		Order("pool_date ASC").
		Find(&pools).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list prize pools: %w", err)
	}
	return pools, nil
}
