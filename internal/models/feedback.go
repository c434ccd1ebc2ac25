package models

import "time"

// FeedbackStatus is the lifecycle state of a submitted correction.
type FeedbackStatus string

const (
	FeedbackPending      FeedbackStatus = "pending"
	FeedbackApproved     FeedbackStatus = "approved"
	FeedbackRejected     FeedbackStatus = "rejected"
	FeedbackAutoApproved FeedbackStatus = "auto-approved"
)

// Feedback is a reviewer correction attached to a job. Only
// PENDING->APPROVED and PENDING->REJECTED transitions are allowed;
// APPROVED, REJECTED and AUTO_APPROVED are terminal.
type Feedback struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	JobID         string         `json:"job_id" gorm:"type:varchar(36);not null;index"`
	OriginalText  string         `json:"original_text" gorm:"type:text;not null"`
	CorrectedText string         `json:"corrected_text" gorm:"type:text;not null"`
	Status        FeedbackStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Confidence    *float64       `json:"confidence,omitempty"`
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Feedback) TableName() string { return "feedback" }
