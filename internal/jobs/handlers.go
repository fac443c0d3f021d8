package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"prizepool_service/internal/calendar"
	"prizepool_service/internal/payout"
	"prizepool_service/internal/prizepool"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type DailyAggregator interface {
	RunDailyAggregation(ctx context.Context, date time.Time) (*prizepool.DailyRunResult, error)
}

type WeeklyDistributor interface {
	RunWeeklyDistribution(ctx context.Context, weekKey string) (*payout.DistributionResult, error)
}

type CampaignExpirer interface {
	EndExpiredCampaigns(ctx context.Context, now time.Time) (int64, error)
}

// Handlers runs the scheduled tasks against the services. Every task carries
// the date or week it applies to, so a retried task repeats the same work.
type Handlers struct {
	pools     DailyAggregator
	payouts   WeeklyDistributor
	campaigns CampaignExpirer
	loc       *time.Location
}

func NewHandlers(pools DailyAggregator, payouts WeeklyDistributor, campaigns CampaignExpirer, loc *time.Location) *Handlers {
	if loc == nil {
		loc = time.UTC
	}
	return &Handlers{pools: pools, payouts: payouts, campaigns: campaigns, loc: loc}
}

func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeDailyAggregation, h.HandleDailyAggregation)
	mux.HandleFunc(TypeWeeklyDistribution, h.HandleWeeklyDistribution)
	mux.HandleFunc(TypeExpireCampaigns, h.HandleExpireCampaigns)
}

func (h *Handlers) HandleDailyAggregation(ctx context.Context, t *asynq.Task) error {
	var payload DailyAggregationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	date, err := calendar.ParseDate(payload.Date, h.loc)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	result, err := h.pools.RunDailyAggregation(ctx, date)
	if err != nil {
		return err
	}
	zap.L().Info("daily aggregation task done",
		zap.String("date", payload.Date),
		zap.Bool("created", result.Created),
		zap.Int("failed", len(result.Failed)),
	)
	return nil
}

func (h *Handlers) HandleWeeklyDistribution(ctx context.Context, t *asynq.Task) error {
	var payload WeeklyDistributionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	if _, err := calendar.ParseWeekKey(payload.WeekKey, h.loc); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	result, err := h.payouts.RunWeeklyDistribution(ctx, payload.WeekKey)
	if errors.Is(err, payout.ErrWeekFinalized) {
		zap.L().Info("weekly distribution task skipped, week finalized", zap.String("week_key", payload.WeekKey))
		return nil
	}
	if err != nil {
		return err
	}
	zap.L().Info("weekly distribution task done",
		zap.String("week_key", payload.WeekKey),
		zap.Int("payouts", len(result.Payouts)),
		zap.String("weekly_gamer_share", result.WeeklyGamerShare.String()),
	)
	return nil
}

func (h *Handlers) HandleExpireCampaigns(ctx context.Context, t *asynq.Task) error {
	var payload ExpireCampaignsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.At.IsZero() {
		return fmt.Errorf("missing expiry instant: %w", asynq.SkipRetry)
	}

	_, err := h.campaigns.EndExpiredCampaigns(ctx, payload.At)
	return err
}
