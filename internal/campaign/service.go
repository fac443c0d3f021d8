package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"prizepool_service/internal/metrics"
	"prizepool_service/internal/payment"
	"prizepool_service/internal/pricing"
	"prizepool_service/internal/scoring"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidCampaign = errors.New("invalid campaign request")
	ErrAlreadyPaid     = errors.New("campaign is already paid")
	ErrPaymentFailed   = errors.New("payment verification failed")
	ErrInvalidWebhook  = errors.New("invalid webhook signature")
)

type Service struct {
	repo    Repository
	gateway payment.Gateway
	now     func() time.Time
}

func NewService(repo Repository, gateway payment.Gateway) *Service {
	return &Service{repo: repo, gateway: gateway, now: time.Now}
}

// WithClock replaces the wall clock used for activation timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func dailyAllocationFor(totalBudget decimal.Decimal, timeLimitHours float64) decimal.Decimal {
	return pricing.DailyAllocation(totalBudget, timeLimitHours)
}

func (s *Service) Quote(packageType pricing.PackageType, timeLimit float64) (*pricing.Quote, error) {
	return pricing.Calculate(packageType, timeLimit)
}

func (s *Service) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*CreateCampaignResponse, error) {
	if strings.TrimSpace(req.BrandID) == "" || strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: brand and title are required", ErrInvalidCampaign)
	}
	if !scoring.GameType(req.GameType).Valid() {
		return nil, fmt.Errorf("%w: unknown game type %q", ErrInvalidCampaign, req.GameType)
	}
	if req.TotalQuestions < 0 {
		return nil, fmt.Errorf("%w: total questions cannot be negative", ErrInvalidCampaign)
	}

	quote, err := pricing.Calculate(req.PackageType, req.TimeLimit)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := &Campaign{
		CampaignID:           uuid.New().String(),
		BrandID:              req.BrandID,
		Title:                req.Title,
		GameType:             req.GameType,
		PackageType:          req.PackageType,
		TimeLimit:            req.TimeLimit,
		TotalQuestions:       req.TotalQuestions,
		PaymentStatus:        PaymentStatusUnpaid,
		Status:               StatusDraft,
		ExpectedChargeAmount: quote.ChargedAmount,
		TotalBudget:          decimal.Zero,
		DailyAllocation:      decimal.Zero,
		BudgetUsed:           decimal.Zero,
		BudgetRemaining:      decimal.Zero,
		StartDate:            now,
		EndDate:              now.Add(time.Duration(req.TimeLimit * float64(time.Hour))),
		Version:              1,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	zap.L().Info("campaign created",
		zap.String("campaign_id", c.CampaignID),
		zap.String("brand_id", c.BrandID),
		zap.String("package_type", string(c.PackageType)),
		zap.Int64("weeks", quote.Weeks),
		zap.String("expected_charge", quote.ChargedAmount.String()),
	)

	return &CreateCampaignResponse{Campaign: c, Quote: *quote}, nil
}

func (s *Service) GetCampaign(ctx context.Context, campaignID string) (*Campaign, error) {
	return s.repo.Get(ctx, campaignID)
}

func (s *Service) ListBrandCampaigns(ctx context.Context, brandID string) ([]Campaign, error) {
	return s.repo.ListByBrand(ctx, brandID)
}

// InitializePayment opens a pending transaction for the campaign's expected
// charge and hands it to the gateway.
func (s *Service) InitializePayment(ctx context.Context, campaignID string, email string) (*InitializePaymentResponse, error) {
	c, err := s.repo.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.PaymentStatus == PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidCampaign)
	}

	reference := uuid.New().String()
	meta := map[string]interface{}{
		"campaign_id":  c.CampaignID,
		"brand_id":     c.BrandID,
		"package_type": c.PackageType,
		"time_limit":   c.TimeLimit,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction metadata: %w", err)
	}

	t := &Transaction{
		TransactionID: uuid.New().String(),
		CampaignID:    c.CampaignID,
		BrandID:       c.BrandID,
		Email:         email,
		Reference:     reference,
		Amount:        c.ExpectedChargeAmount,
		Status:        TransactionPending,
		Metadata:      metaBytes,
	}
	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}

	initRes, err := s.gateway.Initialize(ctx, payment.InitializeRequest{
		Email:     email,
		Amount:    c.ExpectedChargeAmount,
		Reference: reference,
		Metadata:  meta,
	})
	if err != nil {
		if markErr := s.repo.MarkTransactionFailed(ctx, reference, "initialize_failed"); markErr != nil {
			zap.L().Error("failed to mark transaction failed", zap.String("reference", reference), zap.Error(markErr))
		}
		return nil, fmt.Errorf("failed to initialize payment: %w", err)
	}

	zap.L().Info("payment initialized",
		zap.String("campaign_id", c.CampaignID),
		zap.String("reference", reference),
		zap.String("amount", c.ExpectedChargeAmount.String()),
	)

	return &InitializePaymentResponse{
		AuthorizationURL: initRes.AuthorizationURL,
		Reference:        reference,
		Amount:           c.ExpectedChargeAmount,
	}, nil
}

// VerifyPayment confirms a reference with the gateway and activates the
// campaign on success. Verifying an already successful reference is a no-op.
func (s *Service) VerifyPayment(ctx context.Context, reference string) (*ActivationResult, error) {
	zapLog := zap.L().With(zap.String("reference", reference))

	t, err := s.repo.GetTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if t.Status == TransactionSuccess {
		c, err := s.repo.Get(ctx, t.CampaignID)
		if err != nil {
			return nil, err
		}
		metrics.CampaignActivations.WithLabelValues("duplicate").Inc()
		zapLog.Info("payment already verified")
		return &ActivationResult{Campaign: c, AlreadyActive: true}, nil
	}

	result, err := s.gateway.Verify(ctx, reference)
	if err != nil || !result.Success {
		status := "verify_error"
		if result != nil && result.Status != "" {
			status = result.Status
		}
		if markErr := s.repo.MarkTransactionFailed(ctx, reference, status); markErr != nil {
			zapLog.Error("failed to mark transaction failed", zap.Error(markErr))
		}
		metrics.CampaignActivations.WithLabelValues("failed").Inc()
		zapLog.Warn("payment verification failed", zap.String("gateway_status", status), zap.Error(err))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		return nil, ErrPaymentFailed
	}

	amount := result.Amount
	if !amount.IsPositive() {
		amount = t.Amount
	}
	return s.activate(ctx, reference, amount)
}

// HandleWebhook validates a gateway notification and activates the campaign
// for successful charges. Other events are acknowledged without effect.
func (s *Service) HandleWebhook(ctx context.Context, headers http.Header, body []byte) (*ActivationResult, error) {
	event, err := s.gateway.ValidateWebhook(headers, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	if !event.IsValid {
		return nil, ErrInvalidWebhook
	}
	if event.Event != payment.EventChargeSuccess {
		zap.L().Info("ignoring webhook event", zap.String("event", event.Event))
		return nil, nil
	}

	t, err := s.repo.GetTransactionByReference(ctx, event.Data.Reference)
	if err != nil {
		return nil, err
	}
	amount := event.Data.Amount
	if !amount.IsPositive() {
		amount = t.Amount
	}
	return s.activate(ctx, event.Data.Reference, amount)
}

// Activate applies a confirmed charge of amount to the reference's campaign.
func (s *Service) Activate(ctx context.Context, reference string, amount decimal.Decimal) (*ActivationResult, error) {
	return s.activate(ctx, reference, amount)
}

func (s *Service) activate(ctx context.Context, reference string, amount decimal.Decimal) (*ActivationResult, error) {
	result, err := s.repo.Activate(ctx, reference, amount, s.now())
	if err != nil {
		metrics.CampaignActivations.WithLabelValues("failed").Inc()
		return nil, err
	}

	if result.AlreadyActive {
		metrics.CampaignActivations.WithLabelValues("duplicate").Inc()
		zap.L().Info("campaign already active, skipping activation",
			zap.String("reference", reference),
			zap.String("campaign_id", result.Campaign.CampaignID),
		)
		return result, nil
	}

	metrics.CampaignActivations.WithLabelValues("activated").Inc()
	zap.L().Info("campaign activated",
		zap.String("reference", reference),
		zap.String("campaign_id", result.Campaign.CampaignID),
		zap.String("total_budget", result.Campaign.TotalBudget.String()),
		zap.String("daily_allocation", result.Campaign.DailyAllocation.String()),
		zap.Time("end_date", result.Campaign.EndDate),
	)
	return result, nil
}

// EndExpiredCampaigns flips active campaigns whose end date passed before now.
func (s *Service) EndExpiredCampaigns(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.EndExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		zap.L().Info("ended expired campaigns", zap.Int64("count", n))
	}
	return n, nil
}
