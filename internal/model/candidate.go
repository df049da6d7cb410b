package model

import (
	"time"
)

// Candidate represents a scored email awaiting a review decision
type Candidate struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID   string    `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	ProviderID  string    `json:"provider_id" gorm:"type:varchar(255);index"`
	Subject     string    `json:"subject" gorm:"type:text"`
	Sender      string    `json:"sender" gorm:"type:varchar(512)"`
	Date        time.Time `json:"date" gorm:"not null;index:idx_candidates_queue,priority:3"`
	PreviewText string    `json:"preview_text" gorm:"type:text"`
	BodyHTML    *string   `json:"body_html,omitempty" gorm:"type:longtext"`
	BodyText    *string   `json:"body_text,omitempty" gorm:"type:longtext"`
	Score       int       `json:"score" gorm:"not null;index:idx_candidates_queue,priority:2"`
	Reasons     []string  `json:"reasons" gorm:"serializer:json;type:text"`
	Reviewed    bool      `json:"reviewed" gorm:"not null;default:false;index:idx_candidates_queue,priority:1"`
	IngestedAt  time.Time `json:"ingested_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Candidate
func (Candidate) TableName() string {
	return "candidates"
}
