package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"prizepool_service/internal/calendar"
	"prizepool_service/internal/gameplay"
	"prizepool_service/internal/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrPayoutAlreadyProcessed = errors.New("payout already processed")
	ErrWeekFinalized          = errors.New("week already has processed payouts")
)

// distributionPercentages holds the share of the weekly gamer pool, in
// percent, paid to positions 1 through 10. Positions 4-10 split 55% evenly;
// position 10 carries the rounding so the table sums to exactly 100.
var distributionPercentages = []decimal.Decimal{
	decimal.NewFromInt(20),
	decimal.NewFromInt(15),
	decimal.NewFromInt(10),
	decimal.RequireFromString("7.8571"),
	decimal.RequireFromString("7.8571"),
	decimal.RequireFromString("7.8571"),
	decimal.RequireFromString("7.8571"),
	decimal.RequireFromString("7.8571"),
	decimal.RequireFromString("7.8571"),
	decimal.RequireFromString("7.8574"),
}

var hundred = decimal.NewFromInt(100)

// Percentage returns the pool percentage of a 1-based position.
func Percentage(position int) (decimal.Decimal, bool) {
	if position < 1 || position > len(distributionPercentages) {
		return decimal.Zero, false
	}
	return distributionPercentages[position-1], true
}

// Allocations splits share across all paid positions. Each amount is rounded
// to cents and the last position takes the remainder, so the amounts always
// sum to share.
func Allocations(share decimal.Decimal) []decimal.Decimal {
	amounts := make([]decimal.Decimal, len(distributionPercentages))
	allocated := decimal.Zero
	last := len(distributionPercentages) - 1
	for i, pct := range distributionPercentages[:last] {
		amounts[i] = share.Mul(pct).Div(hundred).Round(2)
		allocated = allocated.Add(amounts[i])
	}
	amounts[last] = share.Sub(allocated)
	return amounts
}

// PositionAmount is the payout of position out of share, in currency units.
func PositionAmount(share decimal.Decimal, position int) decimal.Decimal {
	if _, ok := Percentage(position); !ok {
		return decimal.Zero
	}
	return Allocations(share)[position-1]
}

type Players interface {
	Ranking(ctx context.Context, from, to time.Time, limit int) ([]gameplay.RankedPlayer, error)
	CreditEarnings(ctx context.Context, tx *gorm.DB, userID string, amount decimal.Decimal) error
}

type PoolSource interface {
	GamerShareForWeek(ctx context.Context, week calendar.Week) (decimal.Decimal, error)
}

type Service struct {
	db      *gorm.DB
	repo    Repository
	players Players
	pools   PoolSource
	loc     *time.Location
	now     func() time.Time
}

func NewService(db *gorm.DB, repo Repository, players Players, pools PoolSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, repo: repo, players: players, pools: pools, loc: loc, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func toEntries(ranked []gameplay.RankedPlayer) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(ranked))
	for i, p := range ranked {
		entries = append(entries, LeaderboardEntry{
			Position:      i + 1,
			UserID:        p.UserID,
			PuzzlesSolved: p.PuzzlesSolved,
			Points:        p.Points,
		})
	}
	return entries
}

// WeeklyLeaderboard ranks the week containing date and stores the result as
// that week's snapshot.
func (s *Service) WeeklyLeaderboard(ctx context.Context, date time.Time) (*WeeklyLeaderboard, error) {
	week := calendar.WeekOf(date, s.loc)
	ranked, err := s.players.Ranking(ctx, week.Start, week.End, LeaderboardSize)
	if err != nil {
		return nil, err
	}
	entries := toEntries(ranked)

	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode leaderboard: %w", err)
	}
	lb := &Leaderboard{
		LeaderboardID: uuid.New().String(),
		Type:          LeaderboardTypeWeekly,
		PeriodKey:     week.Key(),
		Entries:       raw,
	}
	if err := s.repo.SaveLeaderboard(ctx, lb); err != nil {
		return nil, err
	}

	return &WeeklyLeaderboard{
		WeekKey:   week.Key(),
		StartDate: week.StartKey(),
		EndDate:   week.EndKey(),
		Entries:   entries,
	}, nil
}

// RunWeeklyDistribution computes the payouts of weekKey from the week's gamer
// share and its top ten players. Re-running a week rewrites its pending
// payouts; once any payout of the week is processed the week is final and
// ErrWeekFinalized is returned.
func (s *Service) RunWeeklyDistribution(ctx context.Context, weekKey string) (*DistributionResult, error) {
	start := time.Now()
	week, err := calendar.ParseWeekKey(weekKey, s.loc)
	if err != nil {
		return nil, err
	}
	zapLog := zap.L().With(zap.String("week_key", weekKey))

	share, err := s.pools.GamerShareForWeek(ctx, week)
	if err != nil {
		return nil, err
	}
	ranked, err := s.players.Ranking(ctx, week.Start, week.End, PaidPositions)
	if err != nil {
		return nil, err
	}

	allocations := Allocations(share)
	payouts := make([]Payout, 0, len(ranked))
	keep := make([]string, 0, len(ranked))
	distributed := decimal.Zero
	for i, p := range ranked {
		position := i + 1
		pct, _ := Percentage(position)
		amount := allocations[i]
		distributed = distributed.Add(amount)
		keep = append(keep, p.UserID)
		payouts = append(payouts, Payout{
			PayoutID:               uuid.New().String(),
			UserID:                 p.UserID,
			WeekKey:                weekKey,
			Position:               position,
			Amount:                 amount,
			DistributionPercentage: pct,
			Status:                 StatusPending,
		})
	}

	var removed int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		finalized, err := s.repo.CountFinalized(ctx, tx, weekKey)
		if err != nil {
			return err
		}
		if finalized > 0 {
			return ErrWeekFinalized
		}
		if err := s.repo.UpsertPending(ctx, tx, payouts); err != nil {
			return err
		}
		n, err := s.repo.DeleteStalePending(ctx, tx, weekKey, keep)
		if err != nil {
			return err
		}
		removed = n
		return nil
	})
	if errors.Is(err, ErrWeekFinalized) {
		zapLog.Warn("weekly distribution skipped, week already finalized")
		return nil, err
	}
	if err != nil {
		zapLog.Error("weekly distribution failed", zap.Error(err))
		return nil, err
	}

	stored, err := s.repo.ListByWeek(ctx, weekKey)
	if err != nil {
		return nil, err
	}

	metrics.PayoutsDistributed.Add(float64(len(payouts)))
	metrics.RecordJobDuration("weekly_distribution", time.Since(start).Seconds())
	zapLog.Info("weekly payouts distributed",
		zap.String("weekly_gamer_share", share.String()),
		zap.Int("winners", len(payouts)),
		zap.Int64("removed_stale", removed),
	)

	return &DistributionResult{
		WeekKey:          weekKey,
		WeeklyGamerShare: share,
		Distributed:      distributed,
		Unallocated:      share.Sub(distributed),
		Payouts:          stored,
		RemovedStale:     removed,
	}, nil
}

func (s *Service) ListPayouts(ctx context.Context, weekKey string) ([]Payout, error) {
	if _, err := calendar.ParseWeekKey(weekKey, s.loc); err != nil {
		return nil, err
	}
	return s.repo.ListByWeek(ctx, weekKey)
}

// ProcessPayout marks a pending payout processed and credits the player's
// lifetime earnings in the same transaction.
func (s *Service) ProcessPayout(ctx context.Context, payoutID string) (*Payout, error) {
	var processed *Payout
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.repo.Get(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		if p.Status != StatusPending {
			return ErrPayoutAlreadyProcessed
		}

		ok, err := s.repo.MarkProcessed(ctx, tx, payoutID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrPayoutAlreadyProcessed
		}
		if err := s.players.CreditEarnings(ctx, tx, p.UserID, p.Amount); err != nil {
			return err
		}

		processed, err = s.repo.Get(ctx, tx, payoutID)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("payout processed",
		zap.String("payout_id", processed.PayoutID),
		zap.String("user_id", processed.UserID),
		zap.String("week_key", processed.WeekKey),
		zap.String("amount", processed.Amount.String()),
	)
	return processed, nil
}
