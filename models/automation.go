package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Automation kinds. The trigger worker only evaluates the time-based kinds;
// event kinds are fired from their own webhook entry points.
const (
	KindBirthday    = "birthday"
	KindHoliday     = "holiday"
	KindAnniversary = "anniversary"
	KindInactivity  = "inactivity"
	KindTrialEnding = "trial_ending"

	// Event-driven kinds, excluded from scheduled triggering
	KindPaymentFailed       = "payment_failed"
	KindCartAbandoned       = "cart_abandoned"
	KindSubscriptionChanged = "subscription_changed"
)

// Delivery channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// TimeBasedKinds lists every kind the scheduled trigger may process.
var TimeBasedKinds = []string{
	KindBirthday,
	KindHoliday,
	KindAnniversary,
	KindInactivity,
	KindTrialEnding,
}

// Automation represents a user-defined, time-triggered messaging rule
type Automation struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	// Rule definition
	Name    string `gorm:"not null" json:"name"`
	Kind    string `gorm:"not null;index" json:"kind"`
	Channel string `gorm:"not null;default:'email'" json:"channel"` // email, sms
	// No column default: a rule created disabled must stay disabled.
	Enabled bool `json:"enabled"`

	// Message content
	Subject  string `json:"subject"`
	Body     string `gorm:"not null" json:"body"`
	HTMLBody string `json:"html_body"`

	// Optional media: a static image, or a composited one when overlay text is set
	ImageURL         string `json:"image_url"`
	ImageOverlayText string `json:"image_overlay_text"`

	// DayOffset shifts the fire date relative to the anchor date.
	// -1 fires one day before the anchor, 0 on the day, +1 one day after.
	DayOffset int    `gorm:"default:0" json:"day_offset"`
	Timezone  string `gorm:"default:'UTC'" json:"timezone"` // IANA zone; evaluator falls back to UTC

	// Optional audience restriction
	ContactListID *uint `json:"contact_list_id,omitempty"`

	// Kind-specific parameters stored as JSON
	Params json.RawMessage `gorm:"type:jsonb" json:"params,omitempty"`

	// Statistics (denormalized for performance)
	TotalSent       int        `gorm:"default:0" json:"total_sent"`
	LastTriggeredAt *time.Time `json:"last_triggered_at"`

	// Relations
	User        User         `json:"-"`
	ContactList *ContactList `json:"contact_list,omitempty"`
	SendLogs    []SendLog    `gorm:"foreignKey:AutomationID" json:"send_logs,omitempty"`
}

// IsTimeBased reports whether the rule is evaluated by the scheduled trigger.
func (a *Automation) IsTimeBased() bool {
	for _, k := range TimeBasedKinds {
		if a.Kind == k {
			return true
		}
	}
	return false
}

// HolidayParams configure a holiday automation
type HolidayParams struct {
	HolidayID string `json:"holiday_id"`
}

// InactivityParams configure an inactivity automation
type InactivityParams struct {
	Days int `json:"days"`
}

// TrialEndingParams configure a trial-ending automation
type TrialEndingParams struct {
	Days int `json:"days"`
}

// HolidayParams decodes the rule's params blob. A missing or malformed
// blob yields an empty holiday id, which never matches a calendar entry.
func (a *Automation) HolidayParams() HolidayParams {
	var p HolidayParams
	if len(a.Params) > 0 {
		_ = json.Unmarshal(a.Params, &p)
	}
	return p
}

// InactivityParams decodes the rule's params blob, defaulting to 30 days
// when the blob is missing, malformed or non-positive.
func (a *Automation) InactivityParams() InactivityParams {
	p := InactivityParams{Days: 30}
	if len(a.Params) > 0 {
		var raw InactivityParams
		if err := json.Unmarshal(a.Params, &raw); err == nil && raw.Days > 0 {
			p.Days = raw.Days
		}
	}
	return p
}

// TrialEndingParams decodes the rule's params blob, defaulting to 3 days
// before expiry when the blob is missing, malformed or non-positive.
func (a *Automation) TrialEndingParams() TrialEndingParams {
	p := TrialEndingParams{Days: 3}
	if len(a.Params) > 0 {
		var raw TrialEndingParams
		if err := json.Unmarshal(a.Params, &raw); err == nil && raw.Days > 0 {
			p.Days = raw.Days
		}
	}
	return p
}
