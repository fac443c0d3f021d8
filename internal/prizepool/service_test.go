package prizepool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"prizepool_service/internal/calendar"
	"prizepool_service/internal/campaign"
	"prizepool_service/internal/pricing"
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

var runDate = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setup(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()
	db := testutil.NewTestDB(t, &campaign.Campaign{}, &campaign.Transaction{}, &DailyPrizePool{})
	svc := NewService(db, NewRepository(db), campaign.NewRepository(db), time.UTC)
	return db, svc
}

func seedCampaign(t *testing.T, db *gorm.DB, pkg pricing.PackageType, daily, remaining string, mutate ...func(*campaign.Campaign)) *campaign.Campaign {
	t.Helper()
	c := &campaign.Campaign{
		CampaignID:           uuid.New().String(),
		BrandID:              uuid.New().String(),
		Title:                "Launch",
		GameType:             "sliding_puzzle",
		PackageType:          pkg,
		TimeLimit:            720,
		PaymentStatus:        campaign.PaymentStatusPaid,
		Status:               campaign.StatusActive,
		ExpectedChargeAmount: dec(remaining),
		TotalBudget:          dec(remaining),
		DailyAllocation:      dec(daily),
		BudgetUsed:           decimal.Zero,
		BudgetRemaining:      dec(remaining),
		StartDate:            time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:              time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		Version:              1,
	}
	for _, m := range mutate {
		m(c)
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func reload(t *testing.T, db *gorm.DB, id string) *campaign.Campaign {
	t.Helper()
	var c campaign.Campaign
	require.NoError(t, db.First(&c, "campaign_id = ?", id).Error)
	return &c
}

func TestResolveDailyRate(t *testing.T) {
	rate, source, err := ResolveDailyRate(&campaign.Campaign{PackageType: pricing.PackageBasic, DailyAllocation: dec("750")})
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("750")))
	assert.Equal(t, RateSourceDailyAllocation, source)

	rate, source, err = ResolveDailyRate(&campaign.Campaign{PackageType: pricing.PackagePremium})
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("1428.57")))
	assert.Equal(t, RateSourceLegacy, source)

	_, _, err = ResolveDailyRate(&campaign.Campaign{PackageType: "gold"})
	assert.ErrorIs(t, err, ErrNoDailyRate)
}

func TestSplitPoolSumsToTotal(t *testing.T) {
	for _, total := range []string{"0", "1000", "2428.57", "0.01", "333.33", "99999.99"} {
		gamer, fee := SplitPool(dec(total))
		assert.True(t, gamer.Add(fee).Equal(dec(total)), "total=%s", total)
		assert.True(t, gamer.Equal(gamer.Round(2)), "total=%s", total)
	}

	gamer, fee := SplitPool(dec("1000"))
	assert.True(t, gamer.Equal(dec("700")))
	assert.True(t, fee.Equal(dec("300")))
}

func TestRunDailyAggregation(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()

	basic := seedCampaign(t, db, pricing.PackageBasic, "1000", "30000")
	legacy := seedCampaign(t, db, pricing.PackagePremium, "0", "40000")

	result, err := svc.RunDailyAggregation(ctx, runDate.Add(15*time.Hour))
	require.NoError(t, err)
	require.True(t, result.Created)
	require.Empty(t, result.Failed)

	pool := result.Pool
	assert.Equal(t, "2025-01-15", pool.Date)
	assert.Equal(t, 2, pool.CampaignCount)
	assert.True(t, pool.TotalDailyPool.Equal(dec("2428.57")), "total=%s", pool.TotalDailyPool)
	assert.True(t, pool.GamerShare.Equal(dec("1700")), "gamer=%s", pool.GamerShare)
	assert.True(t, pool.PlatformFee.Equal(dec("728.57")), "fee=%s", pool.PlatformFee)
	assert.True(t, pool.GamerShare.Add(pool.PlatformFee).Equal(pool.TotalDailyPool))

	var stored []Contribution
	require.NoError(t, json.Unmarshal(pool.Campaigns, &stored))
	require.Len(t, stored, 2)

	b := reload(t, db, basic.CampaignID)
	assert.True(t, b.BudgetUsed.Equal(dec("1000")))
	assert.True(t, b.BudgetRemaining.Equal(dec("29000")))
	assert.True(t, b.BudgetUsed.Add(b.BudgetRemaining).Equal(b.TotalBudget))

	l := reload(t, db, legacy.CampaignID)
	assert.True(t, l.BudgetUsed.Equal(dec("1428.57")))
	assert.True(t, l.BudgetRemaining.Equal(dec("38571.43")))
}

func TestRunDailyAggregationIsIdempotentPerDate(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	c := seedCampaign(t, db, pricing.PackageBasic, "1000", "30000")

	first, err := svc.RunDailyAggregation(ctx, runDate)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := svc.RunDailyAggregation(ctx, runDate.Add(20*time.Hour))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Pool.PoolID, second.Pool.PoolID)
	assert.True(t, second.Pool.TotalDailyPool.Equal(dec("1000")))
	assert.Len(t, second.Contributions, 1)

	var count int64
	require.NoError(t, db.Model(&DailyPrizePool{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	after := reload(t, db, c.CampaignID)
	assert.True(t, after.BudgetUsed.Equal(dec("1000")), "campaign debited more than once: %s", after.BudgetUsed)
}

func TestRunDailyAggregationRerunReportsCorruptContributions(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	seedCampaign(t, db, pricing.PackageBasic, "1000", "30000")

	_, err := svc.RunDailyAggregation(ctx, runDate)
	require.NoError(t, err)
	require.NoError(t, db.Exec("UPDATE daily_prize_pools SET campaigns = ? WHERE pool_date = ?", `{"not":"a list"}`, "2025-01-15").Error)

	_, err = svc.RunDailyAggregation(ctx, runDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode contributions of 2025-01-15")
}

func TestRunDailyAggregationClampsToRemainingBudget(t *testing.T) {
	db, svc := setup(t)
	c := seedCampaign(t, db, pricing.PackageBasic, "1000", "300", func(c *campaign.Campaign) {
		c.TotalBudget = dec("30000")
		c.BudgetUsed = dec("29700")
	})

	result, err := svc.RunDailyAggregation(context.Background(), runDate)
	require.NoError(t, err)
	require.Len(t, result.Contributions, 1)
	assert.True(t, result.Contributions[0].Amount.Equal(dec("300")))
	assert.True(t, result.Contributions[0].Exhausted)

	after := reload(t, db, c.CampaignID)
	assert.True(t, after.BudgetRemaining.IsZero())
	assert.True(t, after.BudgetUsed.Equal(dec("30000")))
}

func TestRunDailyAggregationSkipsNonContributing(t *testing.T) {
	db, svc := setup(t)

	seedCampaign(t, db, pricing.PackageBasic, "1000", "30000", func(c *campaign.Campaign) {
		c.Status = campaign.StatusDraft
		c.PaymentStatus = campaign.PaymentStatusUnpaid
	})
	seedCampaign(t, db, pricing.PackageBasic, "1000", "30000", func(c *campaign.Campaign) {
		c.StartDate = time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
		c.EndDate = time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)
	})
	seedCampaign(t, db, pricing.PackageBasic, "1000", "0")

	result, err := svc.RunDailyAggregation(context.Background(), runDate)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, 0, result.Pool.CampaignCount)
	assert.True(t, result.Pool.TotalDailyPool.IsZero())
}

func TestRunDailyAggregationIsolatesBrokenCampaign(t *testing.T) {
	db, svc := setup(t)
	good := seedCampaign(t, db, pricing.PackageBasic, "1000", "30000")
	broken := seedCampaign(t, db, "gold", "0", "30000")

	result, err := svc.RunDailyAggregation(context.Background(), runDate)
	require.NoError(t, err)
	assert.Equal(t, []string{broken.CampaignID}, result.Failed)
	assert.Equal(t, 1, result.Pool.CampaignCount)

	assert.True(t, reload(t, db, good.CampaignID).BudgetUsed.Equal(dec("1000")))
	assert.True(t, reload(t, db, broken.CampaignID).BudgetUsed.IsZero())
}

func TestPreviewDoesNotMutate(t *testing.T) {
	db, svc := setup(t)
	c := seedCampaign(t, db, pricing.PackageBasic, "1000", "30000")

	preview, err := svc.Preview(context.Background(), runDate)
	require.NoError(t, err)
	assert.True(t, preview.Pool.TotalDailyPool.Equal(dec("1000")))
	assert.True(t, preview.Pool.GamerShare.Equal(dec("700")))
	assert.False(t, preview.Created)

	var count int64
	require.NoError(t, db.Model(&DailyPrizePool{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.True(t, reload(t, db, c.CampaignID).BudgetUsed.IsZero())
}

func TestGamerShareForWeek(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()
	seedCampaign(t, db, pricing.PackageBasic, "1000", "30000")

	for _, day := range []int{13, 14, 15} {
		_, err := svc.RunDailyAggregation(ctx, time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}

	week := calendar.WeekOf(runDate, time.UTC)
	share, err := svc.GamerShareForWeek(ctx, week)
	require.NoError(t, err)
	assert.True(t, share.Equal(dec("2100")), "share=%s", share)

	pools, err := svc.ListPools(ctx, week.StartKey(), week.EndKey())
	require.NoError(t, err)
	assert.Len(t, pools, 3)

	_, err = svc.GetPool(ctx, "2025-01-16")
	assert.ErrorIs(t, err, ErrPoolNotFound)
}
