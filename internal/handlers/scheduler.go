package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bulk-mail-verify-go/internal/model"
)

// StartScheduler starts the background job scheduler
func (h *Handlers) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

// StopScheduler stops the background job scheduler
func (h *Handlers) StopScheduler(c *gin.Context) {
	if err := h.scheduler.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

// RunOnce triggers one verification cycle. With no mode parameter every
// pipeline runs; the call returns when the cycle is done.
func (h *Handlers) RunOnce(c *gin.Context) {
	modes := model.Modes()
	if raw := c.Query("mode"); raw != "" {
		mode, err := model.ParseMode(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_mode", Message: err.Error(), Code: http.StatusBadRequest})
			return
		}
		modes = []model.Mode{mode}
	}

	for _, mode := range modes {
		h.verifier.RunOnce(c.Request.Context(), mode)
	}
	c.Status(http.StatusOK)
}

// GetSchedulerStatus returns scheduler status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	status := "stopped"
	if h.scheduler.IsRunning() {
		status = "running"
	}

	jobs := make(map[string]JobStatusResponse)
	for name, job := range h.scheduler.Jobs() {
		jobs[name] = JobStatusResponse{NextRun: job.NextRun, LastRun: job.LastRun}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"jobs":           jobs,
		"pending_timers": h.scheduler.PendingTimers(),
	})
}
