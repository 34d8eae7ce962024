package handler

import (
	"net/http"
	"time"

	"autotrader/internal/cache"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Service health
// @Description  Cache traffic light and running scheduler count
// @Tags         status
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	}
	if h.cache != nil {
		health := h.cache.Health()
		resp["cache"] = gin.H{"status": health.Status, "reason": health.Reason}
		if health.Status == cache.HealthRed {
			resp["status"] = "degraded"
		}
	}
	if h.schedulers != nil {
		resp["schedulers_running"] = h.schedulers.Running()
	}
	c.JSON(http.StatusOK, resp)
}

// GetStatus godoc
// @Summary      Engine status
// @Description  Cache statistics, scheduler statuses and the pipeline phase of every bot
// @Tags         status
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-status")
	defer span.End()

	resp := gin.H{"started_at": h.startedAt}
	if h.cache != nil {
		resp["cache"] = h.cache.Health()
	}
	if h.schedulers != nil {
		resp["schedulers"] = h.schedulers.List()
	}
	if h.engine != nil {
		resp["phases"] = h.engine.Phases().Snapshot()
		resp["watchlist"] = h.engine.Watchlist()
		resp["daily_trade_cap"] = h.engine.DailyTradeCap()
		resp["stream_subscribers"] = h.engine.Broadcaster().Subscribers()
	}
	c.JSON(http.StatusOK, resp)
}
