package api

import (
	"errors"
	"net/http"

	"prizepool_service/internal/calendar"
	"prizepool_service/internal/campaign"
	"prizepool_service/internal/gameplay"
	"prizepool_service/internal/payment"
	"prizepool_service/internal/payout"
	"prizepool_service/internal/pricing"
	"prizepool_service/internal/prizepool"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var ErrInvalidQuery = errors.New("invalid query parameter")

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidQuery),
		errors.Is(err, pricing.ErrInvalidPackage),
		errors.Is(err, pricing.ErrInvalidTimeLimit),
		errors.Is(err, campaign.ErrInvalidCampaign),
		errors.Is(err, campaign.ErrInvalidWebhook),
		errors.Is(err, gameplay.ErrInvalidAttempt),
		errors.Is(err, calendar.ErrInvalidWeekKey):
		return http.StatusBadRequest
	case errors.Is(err, campaign.ErrCampaignNotFound),
		errors.Is(err, campaign.ErrTransactionNotFound),
		errors.Is(err, gameplay.ErrStatsNotFound),
		errors.Is(err, prizepool.ErrPoolNotFound),
		errors.Is(err, payout.ErrPayoutNotFound),
		errors.Is(err, payout.ErrLeaderboardNotFound):
		return http.StatusNotFound
	case errors.Is(err, campaign.ErrAlreadyPaid),
		errors.Is(err, campaign.ErrOptimisticLock),
		errors.Is(err, gameplay.ErrCampaignNotPlayable),
		errors.Is(err, payout.ErrPayoutAlreadyProcessed),
		errors.Is(err, payout.ErrWeekFinalized):
		return http.StatusConflict
	case errors.Is(err, campaign.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, payment.ErrGatewayRequest):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("request error", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
