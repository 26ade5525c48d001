// Package email renders and sends the two notification emails: the daily
// quote and the mood check-in reminder.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/sakif/mos-mood/internal/apperror"
)

// Kind selects the email template.
type Kind string

const (
	KindDailyQuote   Kind = "daily_quote"
	KindMoodReminder Kind = "mood_reminder"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindDailyQuote || k == KindMoodReminder
}

// Args are the template arguments. Quote and Author are required for
// KindDailyQuote and ignored otherwise.
type Args struct {
	Quote  string
	Author string
}

// Message is one rendered email, ready for a Sender.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers a Message and returns the provider's delivery id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type emailTemplate struct {
	subject string
	body    *template.Template
}

// html/template escapes the quote text, which comes from the database.
var templates = map[Kind]emailTemplate{
	KindDailyQuote: {
		subject: "Your daily Roman quote",
		body: template.Must(template.New("daily_quote").Parse(
			`<p>Daily reflection from Mos Mood:</p><blockquote>{{.Quote}}</blockquote><p>- {{.Author}}</p>`)),
	},
	KindMoodReminder: {
		subject: "Mood check-in reminder",
		body: template.Must(template.New("mood_reminder").Parse(
			`<p>Take one minute to log your mood in Mos Mood today.</p>`)),
	},
}

// Config holds the provider settings. APIKey and From are checked on every
// Send so that a missing key is reported per request rather than at startup.
type Config struct {
	APIKey string
	From   string
}

// Dispatcher renders and sends notification emails.
type Dispatcher struct {
	cfg    Config
	sender Sender
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. When sender is nil a ResendSender is
// built from cfg.APIKey.
func NewDispatcher(cfg Config, sender Sender, logger *slog.Logger) *Dispatcher {
	if sender == nil && cfg.APIKey != "" {
		sender = NewResendSender(cfg.APIKey)
	}
	return &Dispatcher{cfg: cfg, sender: sender, logger: logger}
}

// Configured reports whether an API key is set, for the diagnostics route.
func (d *Dispatcher) Configured() bool { return d.cfg.APIKey != "" }

// From returns the configured sender address.
func (d *Dispatcher) From() string { return d.cfg.From }

// Send renders kind for args and delivers it to to.
//
// Errors:
//   - configuration_error when the API key or sender address is empty; no
//     network call is made
//   - validation_error for an unknown kind or an empty recipient
//   - downstream_error when the provider fails or returns no delivery id
func (d *Dispatcher) Send(ctx context.Context, kind Kind, to string, args Args) (string, error) {
	if d.cfg.APIKey == "" || d.sender == nil {
		return "", apperror.MissingConfiguration("RESEND_API_KEY")
	}
	if d.cfg.From == "" {
		return "", apperror.MissingConfiguration("RESEND_FROM_EMAIL")
	}
	if to == "" {
		return "", apperror.ValidationFailed("to", "Missing recipient email")
	}

	tmpl, ok := templates[kind]
	if !ok {
		return "", apperror.ValidationFailed("type", "Invalid type")
	}

	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, args); err != nil {
		return "", fmt.Errorf("email: rendering %s: %w", kind, err)
	}

	id, err := d.sender.Send(ctx, Message{
		From:    d.cfg.From,
		To:      []string{to},
		Subject: tmpl.subject,
		HTML:    body.String(),
	})
	if err != nil {
		d.logger.Error("email: provider rejected message",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	// A send that "succeeds" without an id was not accepted.
	if id == "" {
		d.logger.Error("email: provider returned no delivery id", slog.String("kind", string(kind)))
		return "", apperror.DownstreamMessage(fmt.Sprintf("Failed to send %s email", kind))
	}

	d.logger.Info("email: sent", slog.String("kind", string(kind)), slog.String("email_id", id))
	return id, nil
}
