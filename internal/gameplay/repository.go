package gameplay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrStatsNotFound = errors.New("user stats not found")

type Repository interface {
	RecordAttempt(ctx context.Context, attempt *PuzzleAttempt) error
	GetStats(ctx context.Context, userID string) (*UserStats, error)
	ListAttempts(ctx context.Context, userID string, campaignID string) ([]PuzzleAttempt, error)
	Ranking(ctx context.Context, from, to time.Time, limit int) ([]RankedPlayer, error)
	CreditEarnings(ctx context.Context, tx *gorm.DB, userID string, amount decimal.Decimal) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// RecordAttempt stores the attempt and folds it into the player's stats. A
// first-solve claim that loses against an existing one is stored as a repeat
// solve with zero points.
func (r *RepositoryImpl) RecordAttempt(ctx context.Context, attempt *PuzzleAttempt) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if attempt.FirstTimeSolved {
			claimed := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "first_solve_key"}},
				DoNothing: true,
			}).Create(attempt)
			if claimed.Error != nil {
				return fmt.Errorf("failed to create attempt: %w", claimed.Error)
			}
			if claimed.RowsAffected == 0 {
				attempt.FirstTimeSolved = false
				attempt.FirstSolveKey = nil
				attempt.PointsEarned = 0
				if err := tx.Create(attempt).Error; err != nil {
					return fmt.Errorf("failed to create attempt: %w", err)
				}
			}
		} else {
			if err := tx.Create(attempt).Error; err != nil {
				return fmt.Errorf("failed to create attempt: %w", err)
			}
		}

		return upsertStats(tx, attempt)
	})
}

func upsertStats(tx *gorm.DB, a *PuzzleAttempt) error {
	var solved, points int64
	if a.FirstTimeSolved {
		solved = 1
		points = a.PointsEarned
	}
	now := time.Now().UTC()

	stats := &UserStats{
		UserID:        a.UserID,
		Attempts:      1,
		TotalMoves:    a.MovesTaken,
		TotalTime:     a.TimeTaken,
		PuzzlesSolved: solved,
		TotalPoints:   points,
		TotalEarnings: decimal.Zero,
		UpdatedAt:     now,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"attempts":       gorm.Expr("user_stats.attempts + ?", 1),
			"total_moves":    gorm.Expr("user_stats.total_moves + ?", a.MovesTaken),
			"total_time":     gorm.Expr("user_stats.total_time + ?", a.TimeTaken),
			"puzzles_solved": gorm.Expr("user_stats.puzzles_solved + ?", solved),
			"total_points":   gorm.Expr("user_stats.total_points + ?", points),
			"updated_at":     now,
		}),
	}).Create(stats).Error
	if err != nil {
		return fmt.Errorf("failed to update user stats: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) GetStats(ctx context.Context, userID string) (*UserStats, error) {
	var stats UserStats
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return &stats, nil
}

func (r *RepositoryImpl) ListAttempts(ctx context.Context, userID string, campaignID string) ([]PuzzleAttempt, error) {
	var attempts []PuzzleAttempt
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if campaignID != "" {
		q = q.Where("campaign_id = ?", campaignID)
	}
	if err := q.Order("submitted_at ASC").Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// Ranking groups first-time solves in [from, to] by player, ordered by points
// then solves, descending. Full ties fall back to user_id so the order is
// stable across runs.
func (r *RepositoryImpl) Ranking(ctx context.Context, from, to time.Time, limit int) ([]RankedPlayer, error) {
	var rows []RankedPlayer
	err := r.db.WithContext(ctx).
		Model(&PuzzleAttempt{}).
		Select("user_id, COUNT(*) AS puzzles_solved, SUM(points_earned) AS points").
		Where("first_time_solved = ?", true).
		Where("submitted_at >= ? AND submitted_at <= ?", from.UTC(), to.UTC()).
		Group("user_id").
		Order("points DESC, puzzles_solved DESC, user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank players: %w", err)
	}
	return rows, nil
}

// CreditEarnings adds amount to the player's lifetime earnings inside tx.
func (r *RepositoryImpl) CreditEarnings(ctx context.Context, tx *gorm.DB, userID string, amount decimal.Decimal) error {
	now := time.Now().UTC()
	stats := &UserStats{UserID: userID, TotalEarnings: amount, UpdatedAt: now}
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_earnings": gorm.Expr("user_stats.total_earnings + ?", amount),
			"updated_at":     now,
		}),
	}).Create(stats).Error
	if err != nil {
		return fmt.Errorf("failed to credit earnings: %w", err)
	}
	return nil
}
