// Package api exposes the campaign, gameplay, prize pool and payout services
// over HTTP.
package api

import (
	"net/http"
	"time"

	"prizepool_service/internal/campaign"
	"prizepool_service/internal/gameplay"
	"prizepool_service/internal/payout"
	"prizepool_service/internal/prizepool"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	db        *gorm.DB
	campaigns *campaign.Service
	gameplay  *gameplay.Service
	pools     *prizepool.Service
	payouts   *payout.Service
	loc       *time.Location
	now       func() time.Time
}

func NewHandler(db *gorm.DB, campaigns *campaign.Service, players *gameplay.Service, pools *prizepool.Service, payouts *payout.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		db:        db,
		campaigns: campaigns,
		gameplay:  players,
		pools:     pools,
		payouts:   payouts,
		loc:       loc,
		now:       time.Now,
	}
}

func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) RegisterRoutes(r *gin.Engine, adminSecret string) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/pricing/quote", h.quote)

	r.POST("/campaigns", h.createCampaign)
	r.GET("/campaigns/:id", h.getCampaign)
	r.GET("/brands/:id/campaigns", h.listBrandCampaigns)
	r.POST("/campaigns/:id/payments", h.initializePayment)

	r.GET("/payments/verify/:reference", h.verifyPayment)
	r.POST("/payments/webhook", h.paymentWebhook)

	r.POST("/attempts", h.submitAttempt)
	r.GET("/users/:id/stats", h.userStats)
	r.GET("/users/:id/attempts", h.userAttempts)

	r.GET("/leaderboard/weekly", h.weeklyLeaderboard)
	r.GET("/payouts", h.listPayouts)

	r.GET("/prizepool/preview", h.previewPool)
	r.GET("/prizepool/weekly", h.weeklyPool)
	r.GET("/prizepool/daily/:date", h.getPool)

	admin := r.Group("/admin", AdminOnly(adminSecret))
	admin.POST("/prizepool/run", h.runDailyAggregation)
	admin.POST("/payouts/run", h.runWeeklyDistribution)
	admin.POST("/payouts/:id/process", h.processPayout)
	admin.POST("/campaigns/expire", h.expireCampaigns)
}

func (h *Handler) health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "database": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "connected"})
}

// RequestLogger logs one line per request through the global zap logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			zap.L().Error("request failed", fields...)
			return
		}
		zap.L().Info("request", fields...)
	}
}
