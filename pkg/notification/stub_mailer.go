package notification

import (
	"context"
	"sync"
)

type SentMail struct {
	To      string
	Subject string
	Body    string
}

type StubMailer struct {
	mu      sync.RWMutex
	sent    []SentMail
	sendErr error
}

func NewStubMailer() *StubMailer {
	return &StubMailer{}
}

func (m *StubMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, SentMail{To: to, Subject: subject, Body: body})
	return nil
}

// Helper methods for test setup

func (m *StubMailer) Sent() []SentMail {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]SentMail, len(m.sent))
	copy(result, m.sent)
	return result
}

func (m *StubMailer) SetSendErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

func (m *StubMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.sendErr = nil
}
