package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"flight-mail-review-go/internal/service/review"
)

// SubmitDecision records a verdict for a candidate
func (h *Handlers) SubmitDecision(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, "Invalid request body")
		return
	}

	input := review.DecisionInput{MessageID: req.MessageID, Note: req.Note}
	if verdict, ok := req.IsFlightConfirmation.(bool); ok {
		input.Verdict = &verdict
	}

	remaining, err := h.review.SubmitDecision(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "Failed to record decision")
		return
	}

	c.JSON(http.StatusOK, DecisionResponse{
		Status:              "success",
		RemainingUnreviewed: remaining,
	})
}

// UndoLastDecision reverses the most recent decision
func (h *Handlers) UndoLastDecision(c *gin.Context) {
	messageID, err := h.review.UndoLast(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to undo decision")
		return
	}

	c.JSON(http.StatusOK, UndoResponse{
		Status:          "success",
		UndoneMessageID: messageID,
	})
}

// GetDecisions returns the decision history with pagination
func (h *Handlers) GetDecisions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.review.ListDecisions(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err, "Failed to fetch decisions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"decisions": result.Decisions,
		"pagination": gin.H{
			"page":  result.Page,
			"limit": result.Limit,
			"total": result.Total,
		},
	})
}
