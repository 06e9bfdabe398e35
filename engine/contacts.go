package engine

import (
	"time"

	"gorm.io/gorm"

	"promopilot/models"
)

// ContactResolver turns a rule's audience definition into the eligible
// recipient set.
type ContactResolver struct {
	DB *gorm.DB
}

func NewContactResolver(db *gorm.DB) *ContactResolver {
	return &ContactResolver{DB: db}
}

// Resolve returns the contacts a rule may message today. The base filter
// (owner, active status, channel opt-in, deliverable address) and the
// optional list intersection apply to every kind; birthday matching is
// pushed down to the store, the account-linked kinds post-filter in
// memory against the users table.
func (cr *ContactResolver) Resolve(rule *models.Automation, day LocalDay, now time.Time) ([]models.Contact, error) {
	query := cr.DB.Where("user_id = ? AND status = ?", rule.UserID, "active")

	switch rule.Channel {
	case models.ChannelSMS:
		query = query.Where("sms_opt_in = ? AND phone <> ''", true)
	default:
		query = query.Where("email_opt_in = ? AND email <> ''", true)
	}

	if rule.ContactListID != nil {
		query = query.Where(
			"id IN (?)",
			cr.DB.Model(&models.ContactListMembership{}).
				Select("contact_id").
				Where("contact_list_id = ?", *rule.ContactListID),
		)
	}

	if rule.Kind == models.KindBirthday {
		query = query.Where("birthday_month_day = ?", day.TargetMonthDay(rule.DayOffset))
	}

	var contacts []models.Contact
	if err := query.Find(&contacts).Error; err != nil {
		return nil, err
	}

	switch rule.Kind {
	case models.KindAnniversary:
		return filterAnniversaries(contacts, day.TargetMonthDay(rule.DayOffset)), nil
	case models.KindInactivity:
		return cr.filterByAccount(contacts, func(u *models.User) bool {
			cutoff := InactivityCutoff(rule, now)
			return u.LastLoginAt == nil || u.LastLoginAt.Before(cutoff)
		})
	case models.KindTrialEnding:
		start, end := TrialWindow(rule, now)
		return cr.filterByAccount(contacts, func(u *models.User) bool {
			if u.PlanExpiresAt == nil {
				return false
			}
			exp := u.PlanExpiresAt.UTC()
			return !exp.Before(start) && exp.Before(end)
		})
	}
	return contacts, nil
}

// filterAnniversaries matches each contact's record-creation month-day
// against the shifted target.
func filterAnniversaries(contacts []models.Contact, targetMonthDay string) []models.Contact {
	matched := make([]models.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.CreatedAt.Format("01-02") == targetMonthDay {
			matched = append(matched, c)
		}
	}
	return matched
}

// filterByAccount keeps contacts whose email maps to an account holder
// passing the predicate. Inactivity and trial expiry live on the account
// record, not the contact, so the cross-reference is by email. Contacts
// with no matching account are dropped.
func (cr *ContactResolver) filterByAccount(contacts []models.Contact, keep func(*models.User) bool) ([]models.Contact, error) {
	if len(contacts) == 0 {
		return contacts, nil
	}

	emails := make([]string, 0, len(contacts))
	for _, c := range contacts {
		if c.Email != "" {
			emails = append(emails, c.Email)
		}
	}

	var accounts []models.User
	if err := cr.DB.Where("email IN ?", emails).Find(&accounts).Error; err != nil {
		return nil, err
	}

	byEmail := make(map[string]*models.User, len(accounts))
	for i := range accounts {
		byEmail[accounts[i].Email] = &accounts[i]
	}

	matched := make([]models.Contact, 0, len(contacts))
	for _, c := range contacts {
		account, ok := byEmail[c.Email]
		if ok && keep(account) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}
