// Package mailer delivers outbound notification email. Sending is
// best-effort: callers log failures and carry on.
package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"reviewhub/internal/config"
)

// Mailer sends a single message to one recipient.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	Addr string // host:port of the relay
	From string
}

// Send delivers one message via SMTP.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg))
}

// LogMailer writes messages to the log instead of delivering them.
// Used when no SMTP relay is configured (development, tests).
type LogMailer struct{}

func (LogMailer) Send(to, subject, body string) error {
	logrus.WithField("to", to).Infof("mail (log only): %s: %s", subject, body)
	return nil
}

// FromConfig picks the SMTP mailer when a relay is configured and the
// log-only mailer otherwise.
func FromConfig(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return LogMailer{}
	}
	return &SMTPMailer{Addr: cfg.SMTPHost + ":" + cfg.SMTPPort, From: cfg.SMTPFrom}
}
