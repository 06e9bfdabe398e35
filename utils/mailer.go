package utils

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"promopilot/config"
	"promopilot/engine"
)

// Mailer delivers automation emails over the platform SMTP relay. Each
// user sends from their own verified address; the relay credentials are
// platform-wide.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

func NewMailer() *Mailer {
	return &Mailer{
		Host:     config.AppConfig.SMTPHost,
		Port:     config.AppConfig.SMTPPort,
		Username: config.AppConfig.SMTPUsername,
		Password: config.AppConfig.SMTPPassword,
	}
}

// Send delivers one message and returns a message ID for tracking.
func (m *Mailer) Send(msg engine.EmailMessage) (string, error) {
	message := gomail.NewMessage()
	message.SetHeader("From", fmt.Sprintf("%s <%s>", msg.FromName, msg.From))
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		message.SetHeader("Reply-To", msg.ReplyTo)
	}

	messageID := uuid.New().String()
	message.SetHeader("Message-ID", fmt.Sprintf("<%s@promopilot>", messageID))

	message.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		message.AddAlternative("text/html", msg.HTML)
	}

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := dialer.DialAndSend(message); err != nil {
		return "", fmt.Errorf("error sending email: %v", err)
	}
	return messageID, nil
}
