package engine

import (
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"promopilot/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory DB
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.CreditTransaction{},
		&models.Automation{},
		&models.ContactList{},
		&models.Contact{},
		&models.ContactListMembership{},
		&models.SendLog{},
		&models.Holiday{},
	))
	return db
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func ptrTime(ts time.Time) *time.Time {
	return &ts
}

func gormModelCreatedAt(ts time.Time) gorm.Model {
	return gorm.Model{CreatedAt: ts}
}

func createUser(t *testing.T, db *gorm.DB, user *models.User) *models.User {
	t.Helper()
	if user.Email == "" {
		user.Email = fmt.Sprintf("owner-%d@example.com", time.Now().UnixNano())
	}
	user.IsActive = true
	require.NoError(t, db.Create(user).Error)
	return user
}

func createContact(t *testing.T, db *gorm.DB, contact *models.Contact) *models.Contact {
	t.Helper()
	if contact.Status == "" {
		contact.Status = "active"
	}
	require.NoError(t, db.Create(contact).Error)
	return contact
}

type smsCall struct {
	From, To, Body, MediaURL string
}

type fakeSMS struct {
	calls []smsCall
	err   error
}

func (f *fakeSMS) Send(from, to, body, mediaURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, smsCall{From: from, To: to, Body: body, MediaURL: mediaURL})
	return fmt.Sprintf("sms-%d", len(f.calls)), nil
}

type fakeEmail struct {
	sent []EmailMessage
	err  error
}

func (f *fakeEmail) Send(msg EmailMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("email-%d", len(f.sent)), nil
}

type fakeCalendar struct {
	month time.Month
	day   int
	err   error
}

func (f *fakeCalendar) Resolve(holidayID string, year int) (time.Month, int, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.month, f.day, nil
}

type fakeCompositor struct {
	lastText string
	err      error
}

func (f *fakeCompositor) Composite(baseImageURL, text string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastText = text
	return []byte("png-bytes"), nil
}

type fakeMediaStore struct {
	uploads int
	err     error
}

func (f *fakeMediaStore) Upload(data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads++
	return fmt.Sprintf("https://media.test/%d.png", f.uploads), nil
}

type fakeNotifier struct {
	notified []uint
	err      error
}

func (f *fakeNotifier) Notify(userID uint) error {
	f.notified = append(f.notified, userID)
	return f.err
}

func newTestDispatcher(db *gorm.DB, email EmailProvider, sms SMSProvider) *Dispatcher {
	return &Dispatcher{
		DB:      db,
		Ledger:  NewSendLedger(db),
		Credits: NewCreditLedger(db),
		Email:   email,
		SMS:     sms,
		Costs:   CostTable{Email: 1, SMS: 1, MMS: 3},
		Logger:  discardLogger(),
	}
}

func countLogs(t *testing.T, db *gorm.DB, automationID uint, status string) int {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.SendLog{}).
		Where("automation_id = ? AND status = ?", automationID, status).
		Count(&count).Error)
	return int(count)
}
