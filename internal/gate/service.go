package gate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/gatescan/terminal/internal/model"
	"github.com/gatescan/terminal/internal/repo"
	"github.com/gatescan/terminal/internal/sms"
)

// ErrSubmissionNotFound is returned when a QR code or submission ID resolves
// to nothing.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrNotVerifiable is returned when a submission's status does not permit
// token issuance.
var ErrNotVerifiable = errors.New("submission not in a verifiable state")

// Service implements the gateway's verification operations: resolve a QR
// payload, issue and dispatch entry tokens, record rejections. Status
// transitions are authoritative here; the terminal only mirrors them.
type Service struct {
	submissions repo.SubmissionRepo
	tokens      repo.TokenRepo
	sms         sms.Provider
}

// NewService creates a new verification service.
func NewService(submissions repo.SubmissionRepo, tokens repo.TokenRepo, provider sms.Provider) *Service {
	return &Service{
		submissions: submissions,
		tokens:      tokens,
		sms:         provider,
	}
}

// Resolve maps a raw QR payload to its pending submission.
func (s *Service) Resolve(ctx context.Context, qrCode string) (model.Submission, error) {
	sub, err := s.submissions.GetByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Submission{}, ErrSubmissionNotFound
		}
		return model.Submission{}, fmt.Errorf("resolve submission: %w", err)
	}
	return sub, nil
}

// Verify issues a one-time entry token for the submission, dispatches it to
// the driver by SMS, and marks the submission verified. Pending and already
// verified submissions may be (re-)verified; completed and rejected ones may
// not. A failed SMS dispatch does not void the token — delivery metadata
// reports it instead.
func (s *Service) Verify(ctx context.Context, submissionID string) (string, model.SMSStatus, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", model.SMSStatus{}, ErrSubmissionNotFound
		}
		return "", model.SMSStatus{}, fmt.Errorf("load submission: %w", err)
	}
	if sub.Status != model.StatusPending && sub.Status != model.StatusVerified {
		return "", model.SMSStatus{}, ErrNotVerifiable
	}

	tokenNumber := generateTokenNumber()
	body := fmt.Sprintf("Your gate entry token is %s. Show it at the entry gate.", tokenNumber)

	status, err := s.sms.Send(ctx, sub.DriverPhone, body)
	if err != nil {
		log.Printf("SMS dispatch failed for submission %s: %v", sub.ID, err)
		status = model.SMSStatus{Sent: false, Provider: status.Provider}
	}

	if err := s.tokens.Create(ctx, model.EntryToken{
		SubmissionID: sub.ID,
		TokenNumber:  tokenNumber,
		SentTo:       sub.DriverPhone,
		Provider:     status.Provider,
	}); err != nil {
		return "", model.SMSStatus{}, fmt.Errorf("record entry token: %w", err)
	}

	if err := s.submissions.SetStatus(ctx, sub.ID, model.StatusVerified, ""); err != nil {
		return "", model.SMSStatus{}, fmt.Errorf("mark submission verified: %w", err)
	}

	return tokenNumber, status, nil
}

// Reject records a rejection with its reason.
func (s *Service) Reject(ctx context.Context, submissionID, reason string) error {
	if reason == "" {
		return fmt.Errorf("rejection reason is required")
	}
	if err := s.submissions.SetStatus(ctx, submissionID, model.StatusRejected, reason); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrSubmissionNotFound
		}
		return fmt.Errorf("mark submission rejected: %w", err)
	}
	return nil
}

// generateTokenNumber produces a human-presentable one-time code, e.g.
// GT-784213.
func generateTokenNumber() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return fmt.Sprintf("GT-%06d", rng.Intn(900000)+100000)
}
