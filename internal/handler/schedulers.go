package handler

import (
	"errors"
	"net/http"

	"autotrader/internal/job"

	"github.com/gin-gonic/gin"
)

// ListSchedulers godoc
// @Summary      List schedulers
// @Tags         schedulers
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/schedulers [get]
func (h *Handler) ListSchedulers(c *gin.Context) {
	if h.schedulers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "schedulers unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedulers": h.schedulers.List()})
}

// GetScheduler godoc
// @Summary      Scheduler status
// @Tags         schedulers
// @Produce      json
// @Param        owner  path  string  true  "Owner id, * for all owners"
// @Success      200  {object}  job.SchedulerStatus
// @Failure      404  {object}  map[string]string
// @Router       /api/schedulers/{owner} [get]
func (h *Handler) GetScheduler(c *gin.Context) {
	if h.schedulers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "schedulers unavailable"})
		return
	}
	st, ok := h.schedulers.Status(c.Param("owner"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scheduler for owner " + c.Param("owner")})
		return
	}
	c.JSON(http.StatusOK, st)
}

// StartScheduler godoc
// @Summary      Start an owner's scheduler
// @Tags         schedulers
// @Produce      json
// @Param        owner  path  string  true  "Owner id, * for all owners"
// @Success      200  {object}  job.SchedulerStatus
// @Failure      409  {object}  map[string]string
// @Router       /api/schedulers/{owner}/start [post]
func (h *Handler) StartScheduler(c *gin.Context) {
	if h.schedulers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "schedulers unavailable"})
		return
	}
	_, span := h.tracer.Start(c.Request.Context(), "handler.start-scheduler")
	defer span.End()

	st, err := h.schedulers.Start(c.Param("owner"))
	if errors.Is(err, job.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "scheduler": st})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

// StopScheduler godoc
// @Summary      Stop an owner's scheduler
// @Tags         schedulers
// @Produce      json
// @Param        owner  path  string  true  "Owner id, * for all owners"
// @Success      200  {object}  job.SchedulerStatus
// @Failure      404  {object}  map[string]string
// @Router       /api/schedulers/{owner}/stop [post]
func (h *Handler) StopScheduler(c *gin.Context) {
	if h.schedulers == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "schedulers unavailable"})
		return
	}
	_, span := h.tracer.Start(c.Request.Context(), "handler.stop-scheduler")
	defer span.End()

	st, err := h.schedulers.Stop(c.Param("owner"))
	if errors.Is(err, job.ErrUnknownScheduler) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scheduler for owner " + c.Param("owner")})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}
