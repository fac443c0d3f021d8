package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"prizepool_service/internal/calendar"
	"prizepool_service/internal/campaign"
	"prizepool_service/internal/gameplay"
	"prizepool_service/internal/pricing"

	"github.com/gin-gonic/gin"
)

type initializePaymentRequest struct {
	Email string `json:"email" binding:"required"`
}

// dateQuery reads a YYYY-MM-DD query parameter, defaulting to today.
func (h *Handler) dateQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return calendar.DayStart(h.now(), h.loc), nil
	}
	d, err := calendar.ParseDate(raw, h.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return d, nil
}

// weekQuery reads a week key query parameter, defaulting to the current week.
func (h *Handler) weekQuery(c *gin.Context, name string) (calendar.Week, error) {
	raw := c.Query(name)
	if raw == "" {
		return calendar.WeekOf(h.now(), h.loc), nil
	}
	return calendar.ParseWeekKey(raw, h.loc)
}

func (h *Handler) quote(c *gin.Context) {
	hours, err := strconv.ParseFloat(c.Query("timeLimit"), 64)
	if err != nil {
		respondError(c, fmt.Errorf("%w: timeLimit", ErrInvalidQuery))
		return
	}
	q, err := h.campaigns.Quote(pricing.PackageType(c.Query("packageType")), hours)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *Handler) createCampaign(c *gin.Context) {
	var req campaign.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.campaigns.CreateCampaign(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) getCampaign(c *gin.Context) {
	res, err := h.campaigns.GetCampaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) listBrandCampaigns(c *gin.Context) {
	res, err := h.campaigns.ListBrandCampaigns(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": res})
}

func (h *Handler) initializePayment(c *gin.Context) {
	var req initializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.campaigns.InitializePayment(c.Request.Context(), c.Param("id"), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) verifyPayment(c *gin.Context) {
	res, err := h.campaigns.VerifyPayment(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) paymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.campaigns.HandleWebhook(c.Request.Context(), c.Request.Header, body)
	if err != nil {
		respondError(c, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "already_active": res.AlreadyActive})
}

func (h *Handler) submitAttempt(c *gin.Context) {
	var req gameplay.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.gameplay.SubmitAttempt(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) userStats(c *gin.Context) {
	res, err := h.gameplay.GetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) userAttempts(c *gin.Context) {
	res, err := h.gameplay.ListAttempts(c.Request.Context(), c.Param("id"), c.Query("campaignId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": res})
}

func (h *Handler) weeklyLeaderboard(c *gin.Context) {
	date, err := h.dateQuery(c, "date")
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.payouts.WeeklyLeaderboard(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) listPayouts(c *gin.Context) {
	week, err := h.weekQuery(c, "weekKey")
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.payouts.ListPayouts(c.Request.Context(), week.Key())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"week_key": week.Key(), "payouts": res})
}

func (h *Handler) previewPool(c *gin.Context) {
	date, err := h.dateQuery(c, "date")
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.pools.Preview(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) weeklyPool(c *gin.Context) {
	week, err := h.weekQuery(c, "weekKey")
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	pools, err := h.pools.ListPools(ctx, week.StartKey(), week.EndKey())
	if err != nil {
		respondError(c, err)
		return
	}
	share, err := h.pools.GamerShareForWeek(ctx, week)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"week_key":           week.Key(),
		"daily_pools":        pools,
		"weekly_gamer_share": share,
	})
}

func (h *Handler) getPool(c *gin.Context) {
	if _, err := calendar.ParseDate(c.Param("date"), h.loc); err != nil {
		respondError(c, fmt.Errorf("%w: %v", ErrInvalidQuery, err))
		return
	}
	res, err := h.pools.GetPool(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) runDailyAggregation(c *gin.Context) {
	date, err := h.dateQuery(c, "date")
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.pools.RunDailyAggregation(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if !res.Created {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (h *Handler) runWeeklyDistribution(c *gin.Context) {
	week, err := h.weekQuery(c, "weekKey")
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := h.payouts.RunWeeklyDistribution(c.Request.Context(), week.Key())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) processPayout(c *gin.Context) {
	res, err := h.payouts.ProcessPayout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) expireCampaigns(c *gin.Context) {
	n, err := h.campaigns.EndExpiredCampaigns(c.Request.Context(), h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ended": n})
}
