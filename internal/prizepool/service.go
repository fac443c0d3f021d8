package prizepool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"prizepool_service/internal/calendar"
	"prizepool_service/internal/campaign"
	"prizepool_service/internal/metrics"
	"prizepool_service/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxRetries = 3
	RetryDelay = 10 * time.Millisecond
)

var (
	GamerShareRate  = decimal.RequireFromString("0.7")
	PlatformFeeRate = decimal.RequireFromString("0.3")
)

var (
	ErrNoDailyRate     = errors.New("campaign has no daily rate")
	errNotContributing = errors.New("campaign no longer contributes")
	errBudgetExhausted = errors.New("campaign budget exhausted")
)

// Ledger is the campaign budget state the aggregation reads and debits.
type Ledger interface {
	ListContributing(ctx context.Context, at time.Time) ([]campaign.Campaign, error)
	GetWithTx(ctx context.Context, tx *gorm.DB, campaignID string) (*campaign.Campaign, error)
	Debit(ctx context.Context, tx *gorm.DB, c *campaign.Campaign, amount decimal.Decimal) error
}

type Service struct {
	db     *gorm.DB
	repo   Repository
	ledger Ledger
	loc    *time.Location
}

func NewService(db *gorm.DB, repo Repository, ledger Ledger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, repo: repo, ledger: ledger, loc: loc}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// ResolveDailyRate prefers the campaign's stored daily allocation and falls
// back to the legacy per-package rate for campaigns that never stored one.
func ResolveDailyRate(c *campaign.Campaign) (decimal.Decimal, string, error) {
	if c.DailyAllocation.IsPositive() {
		return c.DailyAllocation, RateSourceDailyAllocation, nil
	}
	rate, err := pricing.LegacyDailyRate(c.PackageType)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("%w: campaign %s: %v", ErrNoDailyRate, c.CampaignID, err)
	}
	return rate, RateSourceLegacy, nil
}

// SplitPool divides a day's pool into gamer share and platform fee. The fee
// takes the rounding remainder so the two always sum to total.
func SplitPool(total decimal.Decimal) (gamerShare, platformFee decimal.Decimal) {
	gamerShare = total.Mul(GamerShareRate).Round(2)
	return gamerShare, total.Sub(gamerShare)
}

func contributionOf(c *campaign.Campaign, rate decimal.Decimal, source string) Contribution {
	amount := decimal.Min(rate, c.BudgetRemaining)
	return Contribution{
		CampaignID:  c.CampaignID,
		BrandID:     c.BrandID,
		PackageType: string(c.PackageType),
		Amount:      amount,
		RateSource:  source,
		Exhausted:   c.BudgetRemaining.Sub(amount).LessThanOrEqual(decimal.Zero),
	}
}

func (s *Service) buildPool(poolID string, date string, contributions []Contribution) (*DailyPrizePool, error) {
	total := decimal.Zero
	for _, c := range contributions {
		total = total.Add(c.Amount)
	}
	gamerShare, platformFee := SplitPool(total)

	if contributions == nil {
		contributions = []Contribution{}
	}
	raw, err := json.Marshal(contributions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode contributions: %w", err)
	}

	return &DailyPrizePool{
		PoolID:         poolID,
		Date:           date,
		Campaigns:      raw,
		CampaignCount:  len(contributions),
		TotalDailyPool: total,
		GamerShare:     gamerShare,
		PlatformFee:    platformFee,
	}, nil
}

// Preview computes the pool the given date would produce without debiting
// any campaign or persisting anything.
func (s *Service) Preview(ctx context.Context, date time.Time) (*DailyRunResult, error) {
	day := calendar.DayStart(date, s.loc)
	campaigns, err := s.ledger.ListContributing(ctx, day)
	if err != nil {
		return nil, err
	}

	var contributions []Contribution
	var failed []string
	for i := range campaigns {
		c := &campaigns[i]
		if !c.Contributing(day) {
			continue
		}
		rate, source, err := ResolveDailyRate(c)
		if err != nil {
			failed = append(failed, c.CampaignID)
			continue
		}
		contributions = append(contributions, contributionOf(c, rate, source))
	}

	pool, err := s.buildPool("", calendar.DateKey(day, s.loc), contributions)
	if err != nil {
		return nil, err
	}
	return &DailyRunResult{Pool: pool, Contributions: contributions, Failed: failed}, nil
}

// RunDailyAggregation builds and persists the pool of date, debiting each
// contributing campaign once. A date that already has a pool is returned as
// is and no ledger is touched again.
func (s *Service) RunDailyAggregation(ctx context.Context, date time.Time) (*DailyRunResult, error) {
	start := time.Now()
	day := calendar.DayStart(date, s.loc)
	key := calendar.DateKey(day, s.loc)
	zapLog := zap.L().With(zap.String("date", key))

	campaigns, err := s.ledger.ListContributing(ctx, day)
	if err != nil {
		metrics.AggregationRuns.WithLabelValues("failed").Inc()
		return nil, err
	}

	result := &DailyRunResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := s.buildPool(uuid.New().String(), key, nil)
		if err != nil {
			return err
		}
		created, err := s.repo.Claim(ctx, tx, claim)
		if err != nil {
			return err
		}
		if !created {
			existing, err := s.repo.GetByDate(ctx, tx, key)
			if err != nil {
				return err
			}
			result.Pool = existing
			if err := json.Unmarshal(existing.Campaigns, &result.Contributions); err != nil {
				return fmt.Errorf("failed to decode contributions of %s: %w", key, err)
			}
			return nil
		}

		for i := range campaigns {
			c := campaigns[i]
			var contribution Contribution
			err := tx.Transaction(func(sp *gorm.DB) error {
				var debitErr error
				contribution, debitErr = s.debit(ctx, sp, &c, day)
				return debitErr
			})
			switch {
			case err == nil:
				result.Contributions = append(result.Contributions, contribution)
				status := "debited"
				if contribution.Exhausted {
					status = "exhausted"
				}
				metrics.CampaignDebits.WithLabelValues(status).Inc()
			case errors.Is(err, errNotContributing), errors.Is(err, errBudgetExhausted):
				zapLog.Info("campaign skipped", zap.String("campaign_id", c.CampaignID), zap.String("reason", err.Error()))
			default:
				result.Failed = append(result.Failed, c.CampaignID)
				metrics.CampaignDebits.WithLabelValues("failed").Inc()
				zapLog.Error("failed to debit campaign", zap.String("campaign_id", c.CampaignID), zap.Error(err))
			}
		}

		pool, err := s.buildPool(claim.PoolID, key, result.Contributions)
		if err != nil {
			return err
		}
		if err := s.repo.Save(ctx, tx, pool); err != nil {
			return err
		}
		result.Pool = pool
		result.Created = true
		return nil
	})
	if err != nil {
		metrics.AggregationRuns.WithLabelValues("failed").Inc()
		zapLog.Error("daily aggregation failed", zap.Error(err))
		return nil, err
	}

	metrics.RecordJobDuration("daily_aggregation", time.Since(start).Seconds())
	if !result.Created {
		metrics.AggregationRuns.WithLabelValues("skipped").Inc()
		zapLog.Info("prize pool already aggregated for date")
		return result, nil
	}

	metrics.AggregationRuns.WithLabelValues("created").Inc()
	metrics.DailyPoolTotal.Set(result.Pool.TotalDailyPool.InexactFloat64())
	zapLog.Info("daily prize pool aggregated",
		zap.Int("campaigns", result.Pool.CampaignCount),
		zap.String("total_daily_pool", result.Pool.TotalDailyPool.String()),
		zap.String("gamer_share", result.Pool.GamerShare.String()),
		zap.String("platform_fee", result.Pool.PlatformFee.String()),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// debit takes one day's contribution from c, never more than its remaining
// budget, retrying on concurrent ledger updates.
func (s *Service) debit(ctx context.Context, tx *gorm.DB, c *campaign.Campaign, day time.Time) (Contribution, error) {
	rate, source, err := ResolveDailyRate(c)
	if err != nil {
		return Contribution{}, err
	}

	for i := 0; i < MaxRetries; i++ {
		if !c.Contributing(day) {
			if !c.BudgetRemaining.IsPositive() {
				return Contribution{}, errBudgetExhausted
			}
			return Contribution{}, errNotContributing
		}

		contribution := contributionOf(c, rate, source)
		err = s.ledger.Debit(ctx, tx, c, contribution.Amount)
		if err == nil {
			return contribution, nil
		}
		if !errors.Is(err, campaign.ErrOptimisticLock) && !errors.Is(err, campaign.ErrInsufficientBudget) {
			return Contribution{}, err
		}

		time.Sleep(RetryDelay)
		fresh, getErr := s.ledger.GetWithTx(ctx, tx, c.CampaignID)
		if getErr != nil {
			return Contribution{}, getErr
		}
		*c = *fresh
	}
	return Contribution{}, err
}

func (s *Service) GetPool(ctx context.Context, date string) (*DailyPrizePool, error) {
	return s.repo.GetByDate(ctx, nil, date)
}

func (s *Service) ListPools(ctx context.Context, fromDate, toDate string) ([]DailyPrizePool, error) {
	return s.repo.ListBetween(ctx, fromDate, toDate)
}

// GamerShareForWeek sums the gamer share of every pool dated inside week.
func (s *Service) GamerShareForWeek(ctx context.Context, week calendar.Week) (decimal.Decimal, error) {
	pools, err := s.repo.ListBetween(ctx, week.StartKey(), week.EndKey())
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range pools {
		total = total.Add(p.GamerShare)
	}
	return total, nil
}
