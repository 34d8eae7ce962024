package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"autotrader/internal/domain"
	"autotrader/internal/repository"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// GetBot godoc
// @Summary      Get a bot
// @Tags         bots
// @Produce      json
// @Param        id   path  string  true  "Bot id"
// @Success      200  {object}  domain.Bot
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/bots/{id} [get]
func (h *Handler) GetBot(c *gin.Context) {
	if h.bots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "bot store unavailable"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-bot")
	defer span.End()

	id := strings.TrimSpace(c.Param("id"))
	span.SetAttributes(attribute.String("bot_id", id))

	b, err := h.bots.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "bot not found: " + id})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"bot": b}
	if h.engine != nil {
		resp["phase"] = h.engine.Phases().Get(id)
	}
	c.JSON(http.StatusOK, resp)
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=running paused stopped"`
}

// SetBotStatus godoc
// @Summary      Pause, resume or stop a bot
// @Tags         bots
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "Bot id"
// @Param        body  body  statusRequest  true  "New status"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/bots/{id}/status [post]
func (h *Handler) SetBotStatus(c *gin.Context) {
	if h.bots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "bot store unavailable"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.set-bot-status")
	defer span.End()

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of running, paused, stopped"})
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	status := domain.BotStatus(req.Status)

	err := h.bots.SetStatus(ctx, id, status)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "bot not found: " + id})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": status})
}

// GetBotActivity godoc
// @Summary      Bot activity log
// @Description  Most recent activity records first, optionally filtered by kind
// @Tags         bots
// @Produce      json
// @Param        id     path   string  true   "Bot id"
// @Param        kind   query  string  false  "Activity kind (signal_generated, risk_rejected, order_placed, ...)"
// @Param        limit  query  int     false  "Number of records (default 50, max 500)"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/bots/{id}/activity [get]
func (h *Handler) GetBotActivity(c *gin.Context) {
	if h.activities == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "activity store unavailable"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-bot-activity")
	defer span.End()

	filter := domain.ActivityFilter{BotID: strings.TrimSpace(c.Param("id")), Limit: defaultActivityLimit}
	span.SetAttributes(attribute.String("bot_id", filter.BotID))

	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		kind, err := domain.ParseActivityKind(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Kind = &kind
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxActivityLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		filter.Limit = n
	}

	records, err := h.activities.List(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bot_id": filter.BotID, "count": len(records), "activity": records})
}
