package sms

import (
	"context"

	"github.com/gatescan/terminal/internal/model"
)

// Provider defines the interface for SMS dispatch. Implementations report
// delivery metadata rather than failing the verification flow on transport
// problems; a lost SMS must not void an issued token.
type Provider interface {
	Send(ctx context.Context, phone, body string) (model.SMSStatus, error)
}
