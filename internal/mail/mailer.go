package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	// ErrUnknownTemplate is returned for a template name that was not embedded.
	ErrUnknownTemplate = errors.New("unknown email template")

	// ErrNoRecipients is returned when SendEmail is called without recipients.
	ErrNoRecipients = errors.New("email has no recipients")

	// ErrSendFailed wraps transport errors from a Sender.
	ErrSendFailed = errors.New("email send failed")
)

// Message is a rendered email ready for a Sender.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders templates and sends them from a fixed address.
type Mailer struct {
	templates *template.Template
	sender    Sender
	from      string
	logger    *slog.Logger
}

// NewMailer parses the embedded templates.
func NewMailer(sender Sender, from string, logger *slog.Logger) (*Mailer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Mailer{
		templates: tmpl,
		sender:    sender,
		from:      from,
		logger:    logger.With(slog.String("component", "mailer")),
	}, nil
}

// SendEmail renders the named template with data and sends it to every
// address in to as a single message.
func (m *Mailer) SendEmail(ctx context.Context, name string, data any, to []string, title string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	t := m.templates.Lookup(name)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	msg := Message{From: m.from, To: to, Subject: title, HTML: body.String()}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	m.logger.Debug("email sent",
		slog.String("template", name),
		slog.Int("recipients", len(to)))
	return nil
}
