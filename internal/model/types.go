package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the review status of a gate-entry submission.
// Transitions are server-authoritative; the terminal only applies a local
// optimistic update to StatusRejected after a successful reject call.
type SubmissionStatus string

const (
	StatusPending   SubmissionStatus = "pending"
	StatusVerified  SubmissionStatus = "verified"
	StatusCompleted SubmissionStatus = "completed"
	StatusRejected  SubmissionStatus = "rejected"
)

// Submission represents a driver's pending gate-entry request as exchanged
// with the gateway. Descriptive fields are optional; absent values render as
// placeholders. Timestamps are epoch milliseconds.
type Submission struct {
	ID                string           `json:"id"`
	CompanyName       string           `json:"companyName,omitempty"`
	VehicleNumber     string           `json:"vehicleNumber,omitempty"`
	DriverName        string           `json:"driverName,omitempty"`
	DriverPhone       string           `json:"driverPhone,omitempty"`
	HelperName        string           `json:"helperName,omitempty"`
	HelperPhone       string           `json:"helperPhone,omitempty"`
	PreferredLanguage string           `json:"preferredLanguage,omitempty"`
	Documents         []string         `json:"documents,omitempty"`
	Status            SubmissionStatus `json:"status"`
	CreatedAt         int64            `json:"createdAt"`
	ExpiresAt         int64            `json:"expiresAt"`
}

// Expired reports whether the submission's QR code has lapsed at the given
// instant. A zero ExpiresAt means the gateway set no expiry; treat as usable.
func (s *Submission) Expired(now time.Time) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return s.ExpiresAt < now.UnixMilli()
}

// SMSStatus is delivery metadata returned by a verify call.
type SMSStatus struct {
	Sent     bool   `json:"sent"`
	Provider string `json:"provider"`
}

// TokenIssuance is the one-time entry token produced by a successful verify.
// It is ephemeral: held only while the token popup is displayed, never
// persisted terminal-side.
type TokenIssuance struct {
	TokenNumber string
	SMSStatus   SMSStatus
	DriverPhone string
}

// GateUser is a terminal operator account on the gateway side.
type GateUser struct {
	ID           uuid.UUID
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// EntryToken is the gateway-side record of an issued entry token.
type EntryToken struct {
	ID           uuid.UUID
	SubmissionID string
	TokenNumber  string
	SentTo       string
	Provider     string
	CreatedAt    time.Time
}
