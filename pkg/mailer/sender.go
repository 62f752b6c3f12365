package mailer

import (
	"context"
	"sync"
)

// Sender is the outbound email transport. Production uses Mailgun; tests use
// CaptureSender.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Message is a captured outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// CaptureSender records messages instead of delivering them. It stands in for
// the disposable mail-capture service used by end-to-end environments and
// offers the same inspection surface: list and clear.
type CaptureSender struct {
	mu       sync.Mutex
	messages []Message
}

func NewCaptureSender() *CaptureSender {
	return &CaptureSender{}
}

func (s *CaptureSender) Send(_ context.Context, to, subject, text, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{To: to, Subject: subject, Text: text, HTML: html})
	return nil
}

// Messages returns a snapshot of captured messages.
func (s *CaptureSender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Clear drops all captured messages.
func (s *CaptureSender) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

var _ Sender = (*CaptureSender)(nil)
