package models

import (
	"time"

	"gorm.io/gorm"
)

// Send log statuses
const (
	SendStatusSent    = "sent"
	SendStatusFailed  = "failed"
	SendStatusSkipped = "skipped"
)

// SendLog is the append-only record of one dispatch attempt. For a given
// (automation, contact) pair at most one sent-or-failed row may carry a
// SentAt on the same local calendar day; that uniqueness is what makes
// retried trigger runs safe.
type SendLog struct {
	gorm.Model
	AutomationID uint `gorm:"not null;index:idx_send_logs_dedup" json:"automation_id"`
	ContactID    uint `gorm:"not null;index:idx_send_logs_dedup" json:"contact_id"`
	UserID       uint `gorm:"not null;index" json:"user_id"`

	Status    string    `gorm:"not null;index" json:"status"` // sent, failed, skipped
	Error     string    `json:"error,omitempty"`
	Channel   string    `json:"channel"`
	MessageID string    `json:"message_id,omitempty"`
	SentAt    time.Time `gorm:"not null;index:idx_send_logs_dedup" json:"sent_at"`

	// Relations
	Automation Automation `json:"-"`
	Contact    Contact    `json:"-"`
}
