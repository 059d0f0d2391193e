// Package notify delivers reminder digests over email. Two drivers are
// available: plain SMTP with STARTTLS and the SendGrid API.
package notify

import (
	"context"
	"fmt"
)

// Message is a fully rendered email with both plain-text and HTML bodies.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a rendered message to the configured recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures a mail driver.
type Config struct {
	Driver string // "smtp" or "sendgrid"

	SMTPServer   string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	SendGridAPIKey string

	SenderEmail    string
	RecipientEmail string
}

// New builds the sender named by cfg.Driver.
func New(cfg Config) (Sender, error) {
	switch cfg.Driver {
	case "smtp":
		return NewSMTPSender(cfg), nil
	case "sendgrid":
		return NewSendGridSender(cfg), nil
	default:
		return nil, fmt.Errorf("unknown notify driver: %q", cfg.Driver)
	}
}
