package engine

import "time"

// EmailMessage is one outbound email handed to the provider.
type EmailMessage struct {
	From     string
	FromName string
	To       string
	Subject  string
	HTML     string
	Text     string
	ReplyTo  string
}

// EmailProvider sends a single email and returns the provider message ID.
type EmailProvider interface {
	Send(msg EmailMessage) (string, error)
}

// SMSProvider sends a single SMS/MMS from a rented number.
type SMSProvider interface {
	Send(from, to, body, mediaURL string) (string, error)
}

// HolidayCalendar resolves a holiday slug to its date for a given year.
type HolidayCalendar interface {
	Resolve(holidayID string, year int) (time.Month, int, error)
}

// Compositor renders overlay text onto a base image.
type Compositor interface {
	Composite(baseImageURL, text string) ([]byte, error)
}

// MediaStore uploads rendered media and returns a public URL.
type MediaStore interface {
	Upload(data []byte) (string, error)
}

// ActivityNotifier tells the activity-sync service that a user had
// successful sends. Best effort; callers ignore the error beyond logging.
type ActivityNotifier interface {
	Notify(userID uint) error
}

// CreditLedger is the prepaid balance collaborator. Debit must be atomic
// per user: the balance check and decrement may not interleave with
// another debit for the same user.
type CreditLedger interface {
	BalanceOf(userID uint) (int, error)
	Debit(userID uint, amount int, reason string) (int, error)
}
