package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	metricsPkg "flight-mail-review-go/internal/metrics"
	"flight-mail-review-go/internal/scheduler"
	"flight-mail-review-go/internal/service/review"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	review    *review.Service
	scheduler *scheduler.Scheduler
	metrics   *metricsPkg.Metrics
	mailbox   string
}

// NewHandlers creates new HTTP handlers. sched may be nil when no mailbox
// source is configured.
func NewHandlers(svc *review.Service, sched *scheduler.Scheduler, metrics *metricsPkg.Metrics, mailbox string) *Handlers {
	return &Handlers{
		review:    svc,
		scheduler: sched,
		metrics:   metrics,
		mailbox:   mailbox,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/candidates/batch", h.GetBatch)
		api.GET("/candidates/search", h.SearchCandidates)
		api.GET("/candidates/:messageId", h.GetCandidate)

		api.POST("/decisions", h.SubmitDecision)
		api.POST("/decisions/undo", h.UndoLastDecision)
		api.GET("/decisions", h.GetDecisions)

		api.GET("/stats", h.GetStats)
		api.POST("/ingest", h.IngestEmails)

		api.GET("/confirmed", h.GetConfirmed)
		api.PATCH("/confirmed/:messageId/forwarding", h.UpdateForwarding)

		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Mailbox:   h.mailbox,
		Metrics:   make(map[string]string),
	}

	if err := h.review.Ping(c.Request.Context()); err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	if h.scheduler != nil && h.scheduler.IsRunning() {
		response.Metrics["scheduler"] = "running"
		response.Metrics["next_run"] = h.scheduler.GetNextRun().Format(time.RFC3339)
		if last := h.scheduler.GetLastRun(); !last.IsZero() {
			response.Metrics["last_run"] = last.Format(time.RFC3339)
		}
	} else {
		response.Metrics["scheduler"] = "stopped"
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// respondError maps review service errors onto HTTP responses
func respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, review.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "already_reviewed",
			Message: err.Error(),
			Code:    http.StatusConflict,
		})
	case errors.Is(err, review.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
			Code:    http.StatusNotFound,
		})
	case errors.Is(err, review.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
	default:
		logrus.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: message,
			Code:    http.StatusInternalServerError,
		})
	}
}

func validationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: message,
		Code:    http.StatusBadRequest,
	})
}
