package sms

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/gatescan/terminal/internal/model"
)

// Dispatch is one recorded stub delivery.
type Dispatch struct {
	Phone string
	Body  string
}

// Stub implements Provider by logging instead of dispatching. It records
// every send so tests can assert on delivery without a real SMS gateway.
type Stub struct {
	mu   sync.Mutex
	sent []Dispatch
}

// NewStub creates a new stub provider.
func NewStub() *Stub {
	return &Stub{}
}

// Send logs the message with a masked phone number and records it.
func (s *Stub) Send(ctx context.Context, phone, body string) (model.SMSStatus, error) {
	s.mu.Lock()
	s.sent = append(s.sent, Dispatch{Phone: phone, Body: body})
	s.mu.Unlock()

	log.Printf("SMS stub: to=%s len=%d", maskPhone(phone), len(body))
	return model.SMSStatus{Sent: true, Provider: "stub"}, nil
}

// Dispatches returns a copy of everything sent so far.
func (s *Stub) Dispatches() []Dispatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Dispatch, len(s.sent))
	copy(out, s.sent)
	return out
}

// maskPhone keeps the country prefix and last two digits. Full numbers never
// reach the logs.
func maskPhone(phone string) string {
	if len(phone) <= 5 {
		return "*****"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-5) + phone[len(phone)-2:]
}
