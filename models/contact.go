package models

import (
	"time"

	"gorm.io/gorm"
)

// ContactList represents a named audience of contacts
type ContactList struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"` // manual, csv, api, etc.

	// Statistics
	ContactCount int `gorm:"default:0" json:"contact_count"`

	// Relations
	Memberships []ContactListMembership `gorm:"foreignKey:ContactListID" json:"memberships,omitempty"`
}

// Contact represents a single marketing recipient
type Contact struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `gorm:"index" json:"email"`
	Phone     string `gorm:"index" json:"phone"`
	PhotoURL  string `json:"photo_url"`

	// Birthday is stored alongside its month-day projection so birthday
	// automations can match on it with a plain indexed equality.
	Birthday         *time.Time `json:"birthday"`
	BirthdayMonthDay string     `gorm:"index" json:"-"` // "MM-DD", maintained on save

	// Status and consent. Opt-ins carry no column default: a zero value
	// must persist as opted out, never be rewritten by the database.
	Status     string `gorm:"default:'active';index" json:"status"` // active, unsubscribed, bounced
	EmailOptIn bool   `json:"email_opt_in"`
	SMSOptIn   bool   `json:"sms_opt_in"`

	// Metadata
	Source      string     `json:"source"`
	LastContact *time.Time `json:"last_contact"`

	// Relations
	Memberships []ContactListMembership `gorm:"foreignKey:ContactID" json:"lists,omitempty"`
}

// BeforeSave keeps the month-day projection in sync with the birthday.
func (c *Contact) BeforeSave(tx *gorm.DB) error {
	if c.Birthday != nil {
		c.BirthdayMonthDay = c.Birthday.Format("01-02")
	} else {
		c.BirthdayMonthDay = ""
	}
	return nil
}

// ContactListMembership joins contacts to lists
type ContactListMembership struct {
	gorm.Model
	ContactListID uint `gorm:"not null;index" json:"contact_list_id"`
	ContactID     uint `gorm:"not null;index" json:"contact_id"`
}
