// Package mail delivers scribe's verification and login links.
//
// Each Send dials the SMTP server, authenticates, delivers one message and
// quits, all under the caller's context deadline. There is no connection
// shared across requests.
package mail

import (
	"context"
	"errors"
	"log/slog"
)

// ErrSend wraps every delivery failure.
var ErrSend = errors.New("mail: send failed")

// Message is a rendered email.
type Message struct {
	Kind    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of sending them.
// It is the development default when no SMTP host is configured.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("mail.dev.send", "kind", msg.Kind, "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}
