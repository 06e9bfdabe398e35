package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a business account in the system
type User struct {
	gorm.Model

	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`

	// Profile information
	Name         *string `json:"name,omitempty"`
	BusinessName *string `json:"business_name,omitempty"`
	Timezone     string  `gorm:"default:'UTC'" json:"timezone"`

	// Account status. No column default so a deactivated account cannot be
	// silently re-enabled on insert.
	IsActive     bool `json:"is_active"`
	TokenVersion int  `gorm:"default:0" json:"-"`

	// Credit-based plan information
	PlanName        string     `gorm:"default:'free'" json:"plan_name"` // free, starter, grow, enterprise
	Credits         int        `gorm:"default:100" json:"credits"`      // 100 free credits for new users
	CreditsConsumed int        `gorm:"default:0" json:"credits_consumed"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	PlanExpiresAt   *time.Time `json:"plan_expires_at"`

	// Email sending configuration
	FromEmail           string `json:"from_email"`
	FromName            string `json:"from_name"`
	SenderVerified      bool   `gorm:"default:false" json:"sender_verified"`
	ReplyTo             string `json:"reply_to"`
	EmailsSentThisMonth int    `gorm:"default:0" json:"emails_sent_this_month"`

	// SMS sending configuration (rented number)
	RentedNumber string `json:"rented_number"`
	NumberActive bool   `gorm:"default:false" json:"number_active"`

	// Relations
	Automations  []Automation        `gorm:"foreignKey:UserID" json:"automations,omitempty"`
	Contacts     []Contact           `gorm:"foreignKey:UserID" json:"contacts,omitempty"`
	Transactions []CreditTransaction `gorm:"foreignKey:UserID" json:"transactions,omitempty"`
}

// CreditTransaction records credit purchases and usage.
// Rows are append-only: usage is negative, purchases positive.
type CreditTransaction struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Credits      int    `gorm:"not null" json:"credits"` // Positive for purchases, negative for usage
	BalanceAfter int    `gorm:"not null" json:"balance_after"`
	Reason       string `gorm:"not null" json:"reason"` // automation_email, automation_sms, purchase, etc.
	ReferenceID  string `json:"reference_id"`

	// Relations
	User User `json:"-"`
}
