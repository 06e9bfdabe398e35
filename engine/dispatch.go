package engine

import (
	"fmt"
	"log"
	"strings"

	"github.com/badoux/checkmail"
	"gorm.io/gorm"

	"promopilot/models"
)

// Opt-out footer appended to SMS bodies that carry no STOP language yet.
const smsOptOutFooter = "\nReply STOP to unsubscribe"

// CostTable holds credits charged per message, by channel and media.
type CostTable struct {
	Email int
	SMS   int
	MMS   int
}

// Outcome aggregates one rule's per-recipient results.
type Outcome struct {
	Sent    int
	Failed  int
	Skipped int
}

// Dispatcher personalizes and delivers one rule's messages to its
// resolved recipients, one channel at a time.
type Dispatcher struct {
	DB         *gorm.DB
	Ledger     *SendLedger
	Credits    CreditLedger
	Email      EmailProvider
	SMS        SMSProvider
	Compositor Compositor
	Media      MediaStore
	Costs      CostTable
	Logger     *log.Logger
}

// Dispatch routes to the rule's channel.
func (d *Dispatcher) Dispatch(user *models.User, rule *models.Automation, day LocalDay, candidates []models.Contact) (Outcome, error) {
	if rule.Channel == models.ChannelSMS {
		return d.dispatchSMS(user, rule, day, candidates)
	}
	return d.dispatchEmail(user, rule, day, candidates)
}

// dispatchEmail implements the email pipeline: dedup, all-or-nothing
// credit pre-check, up-front debit, then per-recipient sends.
func (d *Dispatcher) dispatchEmail(user *models.User, rule *models.Automation, day LocalDay, candidates []models.Contact) (Outcome, error) {
	var outcome Outcome

	remaining, err := d.filterAlreadySent(rule, day, candidates, &outcome)
	if err != nil {
		return outcome, err
	}
	if len(remaining) == 0 {
		return outcome, nil
	}

	if !user.SenderVerified || user.FromEmail == "" {
		d.failAll(rule, remaining, ErrProviderNotConfigured.Error(), &outcome)
		return outcome, nil
	}

	// The email batch is billed all-or-nothing: reject everything when the
	// full amount is unaffordable.
	affordable, err := GateEmail(d.Credits, user.ID, d.Costs.Email, len(remaining))
	if err != nil {
		return outcome, err
	}
	if !affordable {
		d.failAll(rule, remaining, ErrInsufficientCredits.Error(), &outcome)
		return outcome, nil
	}
	if _, err := d.Credits.Debit(user.ID, d.Costs.Email*len(remaining), "automation_email"); err != nil {
		if err == ErrInsufficientCredits {
			d.failAll(rule, remaining, ErrInsufficientCredits.Error(), &outcome)
			return outcome, nil
		}
		return outcome, err
	}

	for i := range remaining {
		contact := &remaining[i]

		if err := checkmail.ValidateFormat(contact.Email); err != nil {
			d.record(rule, contact, models.SendStatusFailed, "invalid email address", "")
			outcome.Failed++
			continue
		}

		msg := EmailMessage{
			From:     user.FromEmail,
			FromName: user.FromName,
			To:       contact.Email,
			Subject:  MergeTags(rule.Subject, contact),
			Text:     MergeTags(rule.Body, contact),
			ReplyTo:  user.ReplyTo,
		}
		if rule.HTMLBody != "" {
			msg.HTML = MergeTags(rule.HTMLBody, contact)
		}
		if mediaURL := d.buildMedia(rule, contact); mediaURL != "" {
			if msg.HTML == "" {
				msg.HTML = "<p>" + msg.Text + "</p>"
			}
			msg.HTML += fmt.Sprintf(`<img src=%q alt="">`, mediaURL)
		}

		messageID, err := d.Email.Send(msg)
		if err != nil {
			d.record(rule, contact, models.SendStatusFailed, err.Error(), "")
			outcome.Failed++
			continue
		}

		d.record(rule, contact, models.SendStatusSent, "", messageID)
		outcome.Sent++
		if err := d.DB.Model(&models.User{}).Where("id = ?", user.ID).
			Update("emails_sent_this_month", gorm.Expr("emails_sent_this_month + ?", 1)).Error; err != nil {
			d.Logger.Printf("Failed to bump monthly email counter for user %d: %v", user.ID, err)
		}
	}
	return outcome, nil
}

// dispatchSMS implements the SMS pipeline: the per-message rate (SMS vs
// MMS) is fixed before the gate, fulfillment is partial, and credits are
// debited per successful send.
func (d *Dispatcher) dispatchSMS(user *models.User, rule *models.Automation, day LocalDay, candidates []models.Contact) (Outcome, error) {
	var outcome Outcome

	remaining, err := d.filterAlreadySent(rule, day, candidates, &outcome)
	if err != nil {
		return outcome, err
	}
	if len(remaining) == 0 {
		return outcome, nil
	}

	if !user.NumberActive || user.RentedNumber == "" {
		d.failAll(rule, remaining, ErrProviderNotConfigured.Error(), &outcome)
		return outcome, nil
	}

	cost := d.Costs.SMS
	if rule.ImageURL != "" || rule.ImageOverlayText != "" {
		cost = d.Costs.MMS
	}

	gated, err := GateSMS(d.Credits, user.ID, cost, remaining)
	if err != nil {
		return outcome, err
	}
	for i := range gated.Unaffordable {
		d.record(rule, &gated.Unaffordable[i], models.SendStatusSkipped, ErrInsufficientCredits.Error(), "")
		outcome.Skipped++
	}

	for i := range gated.Affordable {
		contact := &gated.Affordable[i]

		body := appendOptOut(MergeTags(rule.Body, contact))
		mediaURL := d.buildMedia(rule, contact)

		messageID, err := d.SMS.Send(user.RentedNumber, contact.Phone, body, mediaURL)
		if err != nil {
			d.record(rule, contact, models.SendStatusFailed, err.Error(), "")
			outcome.Failed++
			continue
		}

		if _, err := d.Credits.Debit(user.ID, cost, "automation_sms"); err != nil {
			d.Logger.Printf("Failed to debit %d credits from user %d: %v", cost, user.ID, err)
		}
		d.record(rule, contact, models.SendStatusSent, "", messageID)
		outcome.Sent++
	}
	return outcome, nil
}

// filterAlreadySent drops candidates that already have an attempted entry
// for this local day. Suppressed duplicates bump the skipped counter but
// leave no log row.
func (d *Dispatcher) filterAlreadySent(rule *models.Automation, day LocalDay, candidates []models.Contact, outcome *Outcome) ([]models.Contact, error) {
	remaining := make([]models.Contact, 0, len(candidates))
	for _, contact := range candidates {
		sent, err := d.Ledger.AlreadySentToday(rule.ID, contact.ID, day)
		if err != nil {
			return nil, err
		}
		if sent {
			outcome.Skipped++
			continue
		}
		remaining = append(remaining, contact)
	}
	return remaining, nil
}

func (d *Dispatcher) failAll(rule *models.Automation, contacts []models.Contact, reason string, outcome *Outcome) {
	for i := range contacts {
		d.record(rule, &contacts[i], models.SendStatusFailed, reason, "")
		outcome.Failed++
	}
}

func (d *Dispatcher) record(rule *models.Automation, contact *models.Contact, status, errMsg, messageID string) {
	entry := &models.SendLog{
		AutomationID: rule.ID,
		ContactID:    contact.ID,
		UserID:       rule.UserID,
		Status:       status,
		Error:        errMsg,
		Channel:      rule.Channel,
		MessageID:    messageID,
	}
	if err := d.Ledger.Record(entry); err != nil {
		d.Logger.Printf("Failed to record send log for automation %d contact %d: %v", rule.ID, contact.ID, err)
	}
}

// buildMedia returns the media URL to attach, compositing overlay text
// per recipient when configured. Compositor failures fall back to the
// static image so a rendering outage degrades instead of failing sends.
func (d *Dispatcher) buildMedia(rule *models.Automation, contact *models.Contact) string {
	if rule.ImageOverlayText == "" || d.Compositor == nil || d.Media == nil {
		return rule.ImageURL
	}

	text := MergeTags(rule.ImageOverlayText, contact)
	data, err := d.Compositor.Composite(rule.ImageURL, text)
	if err != nil {
		d.Logger.Printf("Compositor failed for automation %d: %v", rule.ID, err)
		return rule.ImageURL
	}
	url, err := d.Media.Upload(data)
	if err != nil {
		d.Logger.Printf("Media upload failed for automation %d: %v", rule.ID, err)
		return rule.ImageURL
	}
	return url
}

// appendOptOut adds the compliance footer unless the body already carries
// STOP language.
func appendOptOut(body string) string {
	if strings.Contains(strings.ToUpper(body), "STOP") {
		return body
	}
	return body + smsOptOutFooter
}
