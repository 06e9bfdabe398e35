package engine

import (
	"time"

	"gorm.io/gorm"

	"promopilot/models"
)

// SendLedger wraps the append-only send log. It is both the dedup check
// that makes retried trigger runs idempotent and the reporting record.
type SendLedger struct {
	DB *gorm.DB
}

func NewSendLedger(db *gorm.DB) *SendLedger {
	return &SendLedger{DB: db}
}

// AlreadySentToday reports whether a sent-or-failed entry exists for the
// pair within the rule's local calendar day. Skipped entries do not
// count: a contact passed over for credits this morning may still be
// messaged by a later run the same day.
func (sl *SendLedger) AlreadySentToday(automationID, contactID uint, day LocalDay) (bool, error) {
	var count int64
	err := sl.DB.Model(&models.SendLog{}).
		Where("automation_id = ? AND contact_id = ?", automationID, contactID).
		Where("status IN ?", []string{models.SendStatusSent, models.SendStatusFailed}).
		Where("sent_at >= ? AND sent_at < ?", day.Start, day.NextStart()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Record appends one dispatch attempt. Entries are never updated or
// deleted.
func (sl *SendLedger) Record(entry *models.SendLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	return sl.DB.Create(entry).Error
}
