package payout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"prizepool_service/internal/calendar"
	"prizepool_service/internal/gameplay"
	"prizepool_service/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const weekKey = "2025-01-13_to_2025-01-19"

var midweek = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixedPool struct {
	share decimal.Decimal
}

func (f *fixedPool) GamerShareForWeek(ctx context.Context, week calendar.Week) (decimal.Decimal, error) {
	return f.share, nil
}

func setup(t *testing.T, share string) (*gorm.DB, *Service, *fixedPool) {
	t.Helper()
	db := testutil.NewTestDB(t, &gameplay.PuzzleAttempt{}, &gameplay.UserStats{}, &Payout{}, &Leaderboard{})
	pool := &fixedPool{share: dec(share)}
	svc := NewService(db, NewRepository(db), gameplay.NewRepository(db), pool, time.UTC)
	return db, svc, pool
}

func seedSolve(t *testing.T, db *gorm.DB, userID string, points int64, at time.Time) {
	t.Helper()
	campaignID := uuid.New().String()
	key := userID + ":" + campaignID
	require.NoError(t, db.Create(&gameplay.PuzzleAttempt{
		AttemptID:       uuid.New().String(),
		UserID:          userID,
		CampaignID:      campaignID,
		GameType:        "sliding_puzzle",
		Solved:          true,
		FirstTimeSolved: true,
		FirstSolveKey:   &key,
		QuizScore:       3,
		TotalQuestions:  3,
		PointsEarned:    points,
		TimeTaken:       60000,
		MovesTaken:      40,
		Timestamp:       at,
	}).Error)
}

// seedPlayers creates n players where player-01 has the most points.
func seedPlayers(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		seedSolve(t, db, fmt.Sprintf("player-%02d", i), int64(1000-i*10), midweek)
	}
}

func TestPercentagesSumToHundred(t *testing.T) {
	total := decimal.Zero
	for position := 1; position <= PaidPositions; position++ {
		pct, ok := Percentage(position)
		require.True(t, ok)
		total = total.Add(pct)
	}
	assert.True(t, total.Equal(dec("100")), "total=%s", total)

	_, ok := Percentage(0)
	assert.False(t, ok)
	_, ok = Percentage(11)
	assert.False(t, ok)
}

func TestPositionAmountsSumToShare(t *testing.T) {
	for _, share := range []string{"0", "100", "630", "1700", "11900", "12345.67", "0.01"} {
		sum := decimal.Zero
		for position := 1; position <= PaidPositions; position++ {
			amount := PositionAmount(dec(share), position)
			assert.False(t, amount.IsNegative(), "share=%s position=%d", share, position)
			sum = sum.Add(amount)
		}
		assert.True(t, sum.Equal(dec(share)), "share=%s sum=%s", share, sum)
	}
	assert.True(t, PositionAmount(dec("100"), 11).IsZero())
}

func TestRunWeeklyDistribution(t *testing.T) {
	db, svc, _ := setup(t, "10000")
	seedPlayers(t, db, 12)
	// outside the week
	seedSolve(t, db, "player-late", 5000, time.Date(2025, 1, 20, 0, 0, 1, 0, time.UTC))

	result, err := svc.RunWeeklyDistribution(context.Background(), weekKey)
	require.NoError(t, err)
	require.Len(t, result.Payouts, PaidPositions)

	want := []string{"2000", "1500", "1000", "785.71", "785.71", "785.71", "785.71", "785.71", "785.71", "785.74"}
	for i, p := range result.Payouts {
		assert.Equal(t, i+1, p.Position)
		assert.Equal(t, fmt.Sprintf("player-%02d", i+1), p.UserID)
		assert.True(t, p.Amount.Equal(dec(want[i])), "position %d amount %s", p.Position, p.Amount)
		assert.Equal(t, StatusPending, p.Status)
	}
	assert.True(t, result.Distributed.Equal(dec("10000")))
	assert.True(t, result.Unallocated.IsZero())
}

func TestRunWeeklyDistributionRerunOverwritesPending(t *testing.T) {
	db, svc, pool := setup(t, "10000")
	ctx := context.Background()
	seedPlayers(t, db, 10)

	_, err := svc.RunWeeklyDistribution(ctx, weekKey)
	require.NoError(t, err)

	pool.share = dec("20000")
	result, err := svc.RunWeeklyDistribution(ctx, weekKey)
	require.NoError(t, err)
	require.Len(t, result.Payouts, PaidPositions)
	assert.True(t, result.Payouts[0].Amount.Equal(dec("4000")))

	var count int64
	require.NoError(t, db.Model(&Payout{}).Count(&count).Error)
	assert.Equal(t, int64(PaidPositions), count)
}

func TestRunWeeklyDistributionRemovesStalePending(t *testing.T) {
	db, svc, _ := setup(t, "10000")
	ctx := context.Background()
	seedPlayers(t, db, 10)

	_, err := svc.RunWeeklyDistribution(ctx, weekKey)
	require.NoError(t, err)

	seedSolve(t, db, "player-new", 5000, midweek)
	result, err := svc.RunWeeklyDistribution(ctx, weekKey)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.RemovedStale)
	require.Len(t, result.Payouts, PaidPositions)
	assert.Equal(t, "player-new", result.Payouts[0].UserID)
	for _, p := range result.Payouts {
		assert.NotEqual(t, "player-10", p.UserID)
	}
}

func TestRunWeeklyDistributionRejectedAfterProcessing(t *testing.T) {
	db, svc, _ := setup(t, "1000")
	ctx := context.Background()
	seedPlayers(t, db, 10)

	first, err := svc.RunWeeklyDistribution(ctx, weekKey)
	require.NoError(t, err)
	_, err = svc.ProcessPayout(ctx, first.Payouts[0].PayoutID)
	require.NoError(t, err)

	// a late solve would now top the week
	seedSolve(t, db, "late", 5000, midweek)
	_, err = svc.RunWeeklyDistribution(ctx, weekKey)
	assert.ErrorIs(t, err, ErrWeekFinalized)

	stored, err := svc.ListPayouts(ctx, weekKey)
	require.NoError(t, err)
	require.Len(t, stored, PaidPositions)
	total := decimal.Zero
	for i, p := range stored {
		assert.Equal(t, i+1, p.Position)
		assert.NotEqual(t, "late", p.UserID)
		total = total.Add(p.Amount)
	}
	assert.Equal(t, "player-01", stored[0].UserID)
	assert.Equal(t, StatusProcessed, stored[0].Status)
	assert.True(t, total.Equal(dec("1000")), "stored total %s", total)
}

func TestRunWeeklyDistributionFewerThanTenPlayers(t *testing.T) {
	db, svc, _ := setup(t, "10000")
	seedPlayers(t, db, 3)

	result, err := svc.RunWeeklyDistribution(context.Background(), weekKey)
	require.NoError(t, err)
	require.Len(t, result.Payouts, 3)
	assert.True(t, result.Distributed.Equal(dec("4500")))
	assert.True(t, result.Unallocated.Equal(dec("5500")))
}

func TestRunWeeklyDistributionRejectsBadWeekKey(t *testing.T) {
	_, svc, _ := setup(t, "10000")
	_, err := svc.RunWeeklyDistribution(context.Background(), "2025-01-14_to_2025-01-20")
	assert.ErrorIs(t, err, calendar.ErrInvalidWeekKey)
}

func TestProcessPayout(t *testing.T) {
	db, svc, _ := setup(t, "10000")
	ctx := context.Background()
	seedPlayers(t, db, 1)

	result, err := svc.RunWeeklyDistribution(ctx, weekKey)
	require.NoError(t, err)
	id := result.Payouts[0].PayoutID

	processed, err := svc.ProcessPayout(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, processed.Status)
	require.NotNil(t, processed.ProcessedAt)

	_, err = svc.ProcessPayout(ctx, id)
	assert.ErrorIs(t, err, ErrPayoutAlreadyProcessed)

	var stats gameplay.UserStats
	require.NoError(t, db.First(&stats, "user_id = ?", "player-01").Error)
	assert.True(t, stats.TotalEarnings.Equal(dec("2000")), "earnings=%s", stats.TotalEarnings)

	_, err = svc.ProcessPayout(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrPayoutNotFound)
}

func TestWeeklyLeaderboardUpsertsSnapshot(t *testing.T) {
	db, svc, _ := setup(t, "0")
	ctx := context.Background()
	seedPlayers(t, db, 2)

	lb, err := svc.WeeklyLeaderboard(ctx, midweek)
	require.NoError(t, err)
	assert.Equal(t, weekKey, lb.WeekKey)
	require.Len(t, lb.Entries, 2)
	assert.Equal(t, "player-01", lb.Entries[0].UserID)
	assert.Equal(t, 1, lb.Entries[0].Position)

	seedSolve(t, db, "player-03", 9000, midweek)
	lb, err = svc.WeeklyLeaderboard(ctx, midweek.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, lb.Entries, 3)
	assert.Equal(t, "player-03", lb.Entries[0].UserID)

	var count int64
	require.NoError(t, db.Model(&Leaderboard{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRankingTieBreaksOnSolves(t *testing.T) {
	db, svc, _ := setup(t, "0")
	seedSolve(t, db, "alpha", 100, midweek)
	seedSolve(t, db, "beta", 60, midweek)
	seedSolve(t, db, "beta", 40, midweek)
	seedSolve(t, db, "aaron", 100, midweek)

	lb, err := svc.WeeklyLeaderboard(context.Background(), midweek)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 3)
	assert.Equal(t, "beta", lb.Entries[0].UserID)
	assert.Equal(t, int64(2), lb.Entries[0].PuzzlesSolved)
	assert.Equal(t, "aaron", lb.Entries[1].UserID)
	assert.Equal(t, "alpha", lb.Entries[2].UserID)
}
