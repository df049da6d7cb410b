package model

import (
	"time"
)

// ReviewDecision represents a reviewer verdict on one candidate.
// Undoable is set only on the most recent decision.
type ReviewDecision struct {
	ID                   uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CandidateID          uint      `json:"candidate_id" gorm:"not null;index"`
	MessageID            string    `json:"message_id" gorm:"type:varchar(255);not null;index"`
	IsFlightConfirmation bool      `json:"is_flight_confirmation" gorm:"not null;index"`
	Note                 *string   `json:"note,omitempty" gorm:"type:text"`
	Undoable             bool      `json:"undoable" gorm:"not null;default:false"`
	DecidedAt            time.Time `json:"decided_at" gorm:"not null;index"`

	Candidate *Candidate `json:"candidate,omitempty" gorm:"foreignKey:CandidateID;constraint:OnDelete:RESTRICT"`
}

// TableName specifies the table name for ReviewDecision
func (ReviewDecision) TableName() string {
	return "review_decisions"
}
