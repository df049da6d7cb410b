package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"flight-mail-review-go/internal/model"
)

// GetBatch returns the next unreviewed candidates
func (h *Handlers) GetBatch(c *gin.Context) {
	size, err := strconv.Atoi(c.DefaultQuery("size", "0"))
	if err != nil {
		size = 0
	}

	batch, err := h.review.FetchNextBatch(c.Request.Context(), size)
	if err != nil {
		respondError(c, err, "Failed to fetch candidates")
		return
	}

	c.JSON(http.StatusOK, batch)
}

// SearchCandidates searches candidates by subject, sender or message id
func (h *Handlers) SearchCandidates(c *gin.Context) {
	var reviewed *bool
	if raw := c.Query("reviewed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			validationError(c, "reviewed must be true or false")
			return
		}
		reviewed = &v
	}

	result, err := h.review.Search(c.Request.Context(), c.Query("q"), reviewed)
	if err != nil {
		respondError(c, err, "Failed to search candidates")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCandidate returns a single candidate
func (h *Handlers) GetCandidate(c *gin.Context) {
	view, err := h.review.GetCandidate(c.Request.Context(), c.Param("messageId"))
	if err != nil {
		respondError(c, err, "Failed to fetch candidate")
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetStats returns review progress
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.review.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to compute stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// IngestEmails scores and stores raw email records
func (h *Handlers) IngestEmails(c *gin.Context) {
	var emails []model.EmailMessage
	if err := c.ShouldBindJSON(&emails); err != nil {
		validationError(c, "Invalid request body")
		return
	}

	result, err := h.review.IngestEmails(c.Request.Context(), emails)
	if err != nil {
		respondError(c, err, "Failed to ingest emails")
		return
	}

	c.JSON(http.StatusOK, result)
}
