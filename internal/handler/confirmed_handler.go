package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetConfirmed lists confirmed flights, optionally filtered by forwarding status
func (h *Handlers) GetConfirmed(c *gin.Context) {
	entries, err := h.review.ListConfirmed(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err, "Failed to fetch confirmed flights")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"confirmed": entries,
		"count":     len(entries),
	})
}

// UpdateForwarding records the forwarding outcome of a confirmed flight
func (h *Handlers) UpdateForwarding(c *gin.Context) {
	var req ForwardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, "Invalid request body")
		return
	}

	entry, err := h.review.UpdateForwarding(c.Request.Context(), c.Param("messageId"), req.Status, req.TripID)
	if err != nil {
		respondError(c, err, "Failed to update forwarding status")
		return
	}

	c.JSON(http.StatusOK, entry)
}
