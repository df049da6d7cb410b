package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"flight-mail-review-go/internal/scheduler"
)

func (h *Handlers) requireScheduler(c *gin.Context) bool {
	if h.scheduler != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error:   "scheduler_unavailable",
		Message: "No mailbox source configured",
		Code:    http.StatusServiceUnavailable,
	})
	return false
}

// StartScheduler starts the mailbox ingestion scheduler
func (h *Handlers) StartScheduler(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}

	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to start scheduler",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler started successfully",
		"status":  "running",
	})
}

// StopScheduler stops the mailbox ingestion scheduler
func (h *Handlers) StopScheduler(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}

	if err := h.scheduler.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to stop scheduler",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduler stopped successfully",
		"status":  "stopped",
	})
}

// RunOnce pulls from the mailbox and ingests once
func (h *Handlers) RunOnce(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}

	result, err := h.scheduler.RunOnce(c.Request.Context())
	if errors.Is(err, scheduler.ErrCycleInProgress) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "scheduler_busy",
			Message: err.Error(),
			Code:    http.StatusConflict,
		})
		return
	}
	if err != nil {
		logrus.WithError(err).Error("Manual ingestion cycle failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "scheduler_error",
			Message: "Failed to run mailbox ingestion",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Mailbox ingestion completed successfully",
		"result":  result,
	})
}

// GetSchedulerStatus returns the current scheduler status
func (h *Handlers) GetSchedulerStatus(c *gin.Context) {
	if !h.requireScheduler(c) {
		return
	}

	c.JSON(http.StatusOK, h.scheduler.GetStatus())
}
