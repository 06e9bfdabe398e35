package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"promopilot/models"
)

func newTestOrchestrator(db *gorm.DB, d *Dispatcher, calendar HolidayCalendar) *Orchestrator {
	return &Orchestrator{
		DB:         db,
		Resolver:   NewContactResolver(db),
		Dispatcher: d,
		Holidays:   calendar,
		Logger:     discardLogger(),
		Now:        time.Now,
	}
}

// birthdayToday stores a contact whose birthday month-day matches the
// current UTC day, so a zero-offset birthday rule resolves it.
func birthdayToday(t *testing.T, db *gorm.DB, user *models.User) *models.Contact {
	now := time.Now().UTC()
	return createContact(t, db, &models.Contact{
		UserID:   user.ID,
		Phone:    "+15550001111",
		SMSOptIn: true,
		Birthday: ptrTime(time.Date(1990, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)),
	})
}

func TestRunIsIdempotentWithinOneDay(t *testing.T) {
	db := newTestDB(t)
	user := smsUser(t, db, 10)
	rule := makeRule(t, db, user, models.ChannelSMS)
	birthdayToday(t, db, user)

	sms := &fakeSMS{}
	o := newTestOrchestrator(db, newTestDispatcher(db, &fakeEmail{}, sms), &fakeCalendar{})

	first := o.Run("all")
	assert.Equal(t, 1, first.Processed)
	assert.Equal(t, 1, first.Sent)

	second := o.Run("all")
	assert.Equal(t, 0, second.Sent)
	assert.Equal(t, 1, second.Skipped)

	assert.Len(t, sms.calls, 1)
	assert.Equal(t, 1, countLogs(t, db, rule.ID, models.SendStatusSent))
}

func TestRunIsolatesRuleFailures(t *testing.T) {
	db := newTestDB(t)
	user := smsUser(t, db, 10)

	broken := &models.Automation{
		UserID:   user.ID,
		Name:     "Xmas promo",
		Kind:     models.KindHoliday,
		Channel:  models.ChannelSMS,
		Enabled:  true,
		Body:     "Merry Christmas!",
		Params:   []byte(`{"holiday_id":"no-such-day"}`),
		Timezone: "UTC",
	}
	require.NoError(t, db.Create(broken).Error)

	healthy := makeRule(t, db, user, models.ChannelSMS)
	birthdayToday(t, db, user)

	sms := &fakeSMS{}
	calendar := &fakeCalendar{err: assert.AnError}
	o := newTestOrchestrator(db, newTestDispatcher(db, &fakeEmail{}, sms), calendar)

	report := o.Run("all")

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Details, 2)

	assert.Equal(t, broken.ID, report.Details[0].AutomationID)
	assert.Contains(t, report.Details[0].Error, "holiday lookup failed")
	assert.Equal(t, healthy.ID, report.Details[1].AutomationID)
	assert.Empty(t, report.Details[1].Error)
	assert.Len(t, sms.calls, 1)
}

func TestHolidayRuleFiresOnExactDayOnly(t *testing.T) {
	now := time.Now().UTC()

	cases := []struct {
		name      string
		month     time.Month
		day       int
		wantSends int
	}{
		{"today", now.Month(), now.Day(), 1},
		{"tomorrow", now.AddDate(0, 0, 1).Month(), now.AddDate(0, 0, 1).Day(), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t)
			user := smsUser(t, db, 10)

			rule := &models.Automation{
				UserID:   user.ID,
				Name:     "Holiday blast",
				Kind:     models.KindHoliday,
				Channel:  models.ChannelSMS,
				Enabled:  true,
				Body:     "Celebrate with us",
				Params:   []byte(`{"holiday_id":"some-day"}`),
				Timezone: "UTC",
			}
			require.NoError(t, db.Create(rule).Error)

			createContact(t, db, &models.Contact{
				UserID: user.ID, Phone: "+15550002222", SMSOptIn: true,
			})

			sms := &fakeSMS{}
			calendar := &fakeCalendar{month: tc.month, day: tc.day}
			o := newTestOrchestrator(db, newTestDispatcher(db, &fakeEmail{}, sms), calendar)

			report := o.Run(models.KindHoliday)
			assert.Equal(t, tc.wantSends, report.Sent)
			assert.Len(t, sms.calls, tc.wantSends)
		})
	}
}

func TestRunSkipsDisabledAndEventRules(t *testing.T) {
	db := newTestDB(t)
	user := smsUser(t, db, 10)

	disabled := makeRule(t, db, user, models.ChannelSMS)
	disabled.Enabled = false
	require.NoError(t, db.Save(disabled).Error)

	event := &models.Automation{
		UserID:  user.ID,
		Name:    "Cart rescue",
		Kind:    models.KindCartAbandoned,
		Channel: models.ChannelSMS,
		Enabled: true,
		Body:    "You left something behind",
	}
	require.NoError(t, db.Create(event).Error)

	birthdayToday(t, db, user)

	o := newTestOrchestrator(db, newTestDispatcher(db, &fakeEmail{}, &fakeSMS{}), &fakeCalendar{})
	report := o.Run("all")

	assert.Equal(t, 0, report.Processed)
	assert.Empty(t, report.Details)
}

func TestRunKindFilter(t *testing.T) {
	db := newTestDB(t)
	user := smsUser(t, db, 10)

	birthday := makeRule(t, db, user, models.ChannelSMS)
	inactivity := &models.Automation{
		UserID:   user.ID,
		Name:     "Win-back",
		Kind:     models.KindInactivity,
		Channel:  models.ChannelSMS,
		Enabled:  true,
		Body:     "We miss you",
		Timezone: "UTC",
	}
	require.NoError(t, db.Create(inactivity).Error)

	o := newTestOrchestrator(db, newTestDispatcher(db, &fakeEmail{}, &fakeSMS{}), &fakeCalendar{})

	report := o.Run(models.KindBirthday)
	require.Len(t, report.Details, 1)
	assert.Equal(t, birthday.ID, report.Details[0].AutomationID)

	unknown := o.Run("bogus")
	assert.Equal(t, 0, unknown.Processed)
	assert.Empty(t, unknown.Details)
}

func TestRunSkipsInactiveOwners(t *testing.T) {
	db := newTestDB(t)
	user := smsUser(t, db, 10)
	rule := makeRule(t, db, user, models.ChannelSMS)
	birthdayToday(t, db, user)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("is_active", false).Error)

	sms := &fakeSMS{}
	o := newTestOrchestrator(db, newTestDispatcher(db, &fakeEmail{}, sms), &fakeCalendar{})

	report := o.Run("all")
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, sms.calls)
	assert.Equal(t, 0, countLogs(t, db, rule.ID, models.SendStatusSent))
}

func TestRunUpdatesCountersOnlyWhenAttempted(t *testing.T) {
	db := newTestDB(t)
	user := smsUser(t, db, 10)
	rule := makeRule(t, db, user, models.ChannelSMS)
	birthdayToday(t, db, user)

	o := newTestOrchestrator(db, newTestDispatcher(db, &fakeEmail{}, &fakeSMS{}), &fakeCalendar{})

	o.Run("all")

	var fresh models.Automation
	require.NoError(t, db.First(&fresh, rule.ID).Error)
	assert.Equal(t, 1, fresh.TotalSent)
	require.NotNil(t, fresh.LastTriggeredAt)
	firstTriggered := *fresh.LastTriggeredAt

	// The second run only dedup-skips, which is not a trigger.
	o.Run("all")

	require.NoError(t, db.First(&fresh, rule.ID).Error)
	assert.Equal(t, 1, fresh.TotalSent)
	assert.WithinDuration(t, firstTriggered, *fresh.LastTriggeredAt, time.Second)
}

func TestRunNotifiesActivityOncePerUserWithSends(t *testing.T) {
	db := newTestDB(t)
	user := smsUser(t, db, 10)
	makeRule(t, db, user, models.ChannelSMS)
	anniversary := &models.Automation{
		UserID:   user.ID,
		Name:     "Signup anniversary",
		Kind:     models.KindAnniversary,
		Channel:  models.ChannelSMS,
		Enabled:  true,
		Body:     "Thanks for a great year",
		Timezone: "UTC",
	}
	require.NoError(t, db.Create(anniversary).Error)

	// Matches the birthday rule today and the anniversary rule via its
	// creation date.
	contact := birthdayToday(t, db, user)
	require.NoError(t, db.Model(&models.Contact{}).Where("id = ?", contact.ID).
		Update("created_at", time.Now().UTC().AddDate(-1, 0, 0)).Error)

	quiet := smsUser(t, db, 10)
	makeRule(t, db, quiet, models.ChannelSMS)

	notifier := &fakeNotifier{}
	o := newTestOrchestrator(db, newTestDispatcher(db, &fakeEmail{}, &fakeSMS{}), &fakeCalendar{})
	o.Activity = notifier

	report := o.Run("all")
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, []uint{user.ID}, notifier.notified)
}

func TestRunNotifierFailureDoesNotTouchReport(t *testing.T) {
	db := newTestDB(t)
	user := smsUser(t, db, 10)
	makeRule(t, db, user, models.ChannelSMS)
	birthdayToday(t, db, user)

	notifier := &fakeNotifier{err: assert.AnError}
	o := newTestOrchestrator(db, newTestDispatcher(db, &fakeEmail{}, &fakeSMS{}), &fakeCalendar{})
	o.Activity = notifier

	report := o.Run("all")
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Details, 1)
	assert.Empty(t, report.Details[0].Error)
}
