package jobs

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
)

// Message is an outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail through an SMTP relay. Auth is skipped when no user
// is configured, which suits local catch-all servers.
type SMTPMailer struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Send implements Mailer. msg.From falls back to the configured sender.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = msg.From
	if e.From == "" {
		e.From = m.From
	}
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Text)

	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Password, m.Host)
	}
	addr := m.Host + ":" + strconv.Itoa(m.Port)
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	return nil
}
