package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const sendTimeout = 10 * time.Second

var ErrNotConfigured = errors.New("mailgun not configured")

// Mailgun delivers rendered notification emails.
type Mailgun struct {
	Sender string
	client *mg.MailgunImpl
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	m := &Mailgun{Sender: sender}
	if domain != "" && apiKey != "" {
		m.client = mg.NewMailgun(domain, apiKey)
	}
	return m
}

// Send delivers one message. The html part is attached only when non-empty.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	if m.client == nil || m.Sender == "" {
		return ErrNotConfigured
	}
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if _, _, err := m.client.Send(c, msg); err != nil {
		return fmt.Errorf("mailgun send to %s: %w", to, err)
	}
	return nil
}
