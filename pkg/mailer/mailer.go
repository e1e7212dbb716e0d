// Package mailer defines the outbound notification boundary. Incidence
// and assignment notifications go through it; the default implementation
// only logs, with SMTP or a provider SDK pluggable behind the interface.
package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Message is a single outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends notifications.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer logs messages instead of delivering them. Used in
// development and as the default when no provider is configured.
type LogMailer struct {
	log *logrus.Logger
}

func NewLogMailer(log *logrus.Logger) *LogMailer {
	return &LogMailer{log: log}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail suppressed (log mailer)")
	return nil
}
