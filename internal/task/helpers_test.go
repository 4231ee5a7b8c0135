package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock returns a time source stuck at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type sentEmail struct {
	Template string
	Data     any
	To       []string
	Title    string
}

// mockMailer records sent emails and fails while failures > 0.
type mockMailer struct {
	mu       sync.Mutex
	sent     []sentEmail
	failures int
	err      error
}

func (m *mockMailer) SendEmail(_ context.Context, template string, data any, to []string, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return m.err
	}
	m.sent = append(m.sent, sentEmail{Template: template, Data: data, To: append([]string(nil), to...), Title: title})
	return nil
}

func (m *mockMailer) Sent() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentEmail(nil), m.sent...)
}
