package model

import (
	"time"
)

// Forwarding statuses of a confirmed flight
const (
	ForwardStatusPending = "pending"
	ForwardStatusSuccess = "success"
	ForwardStatusFailed  = "failed"
)

// ValidForwardStatus reports whether s is a known forwarding status
func ValidForwardStatus(s string) bool {
	switch s {
	case ForwardStatusPending, ForwardStatusSuccess, ForwardStatusFailed:
		return true
	}
	return false
}

// ConfirmedFlight represents a candidate the reviewer accepted as a flight confirmation
type ConfirmedFlight struct {
	ID            uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID     string     `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	ProviderID    string     `json:"provider_id" gorm:"type:varchar(255)"`
	Subject       string     `json:"subject" gorm:"type:text"`
	ForwardStatus string     `json:"forward_status" gorm:"type:varchar(20);not null;default:pending;index"`
	ForwardedAt   *time.Time `json:"forwarded_at,omitempty"`
	TripID        *string    `json:"trip_id,omitempty" gorm:"type:varchar(255)"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TableName specifies the table name for ConfirmedFlight
func (ConfirmedFlight) TableName() string {
	return "confirmed_flights"
}
