package handler

import "time"

// DecisionRequest represents a reviewer verdict. IsFlightConfirmation is
// decoded loosely so a non-boolean value reaches the service as missing.
type DecisionRequest struct {
	MessageID            string      `json:"message_id"`
	IsFlightConfirmation interface{} `json:"is_flight_confirmation"`
	Note                 *string     `json:"note"`
}

// DecisionResponse is returned after a decision is recorded
type DecisionResponse struct {
	Status              string `json:"status"`
	RemainingUnreviewed int64  `json:"remaining_unreviewed"`
}

// UndoResponse is returned after the last decision is undone
type UndoResponse struct {
	Status          string `json:"status"`
	UndoneMessageID string `json:"undone_message_id"`
}

// ForwardingRequest reports the forwarding outcome of a confirmed flight
type ForwardingRequest struct {
	Status string  `json:"status" binding:"required"`
	TripID *string `json:"trip_id"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Mailbox   string            `json:"mailbox"`
	Metrics   map[string]string `json:"metrics,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
