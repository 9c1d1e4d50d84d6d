package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/gatescan/terminal/internal/model"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// SubmissionRepo defines the interface for submission storage operations.
type SubmissionRepo interface {
	GetByQRCode(ctx context.Context, qrCode string) (model.Submission, error)
	GetByID(ctx context.Context, id string) (model.Submission, error)
	SetStatus(ctx context.Context, id string, status model.SubmissionStatus, rejectReason string) error
	Create(ctx context.Context, qrCode string, sub model.Submission) error
}

type submissionRepo struct {
	db *sql.DB
}

// NewSubmissionRepo creates a new SubmissionRepo instance.
func NewSubmissionRepo(db *sql.DB) SubmissionRepo {
	return &submissionRepo{db: db}
}

const submissionColumns = `
	id, company_name, vehicle_number, driver_name, driver_phone,
	helper_name, helper_phone, preferred_language, documents, status,
	created_at_ms, expires_at_ms
`

func scanSubmission(row *sql.Row) (model.Submission, error) {
	var sub model.Submission
	var status string
	err := row.Scan(
		&sub.ID,
		&sub.CompanyName,
		&sub.VehicleNumber,
		&sub.DriverName,
		&sub.DriverPhone,
		&sub.HelperName,
		&sub.HelperPhone,
		&sub.PreferredLanguage,
		pq.Array(&sub.Documents),
		&status,
		&sub.CreatedAt,
		&sub.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Submission{}, ErrNotFound
		}
		return model.Submission{}, fmt.Errorf("failed to query submission: %w", err)
	}
	sub.Status = model.SubmissionStatus(status)
	return sub, nil
}

// GetByQRCode resolves a raw QR payload to its submission.
func (r *submissionRepo) GetByQRCode(ctx context.Context, qrCode string) (model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE qr_code = $1`
	return scanSubmission(r.db.QueryRowContext(ctx, query, qrCode))
}

// GetByID retrieves a submission by ID.
func (r *submissionRepo) GetByID(ctx context.Context, id string) (model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	return scanSubmission(r.db.QueryRowContext(ctx, query, id))
}

// SetStatus updates a submission's review status. rejectReason is stored only
// for rejections and may be empty otherwise.
func (r *submissionRepo) SetStatus(ctx context.Context, id string, status model.SubmissionStatus, rejectReason string) error {
	query := `
		UPDATE submissions
		SET status = $2, reject_reason = $3
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, string(status), rejectReason)
	if err != nil {
		return fmt.Errorf("failed to update submission status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Create inserts a new submission for the given QR payload.
func (r *submissionRepo) Create(ctx context.Context, qrCode string, sub model.Submission) error {
	query := `
		INSERT INTO submissions (
			id, qr_code, company_name, vehicle_number, driver_name, driver_phone,
			helper_name, helper_phone, preferred_language, documents, status,
			created_at_ms, expires_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		sub.ID, qrCode, sub.CompanyName, sub.VehicleNumber, sub.DriverName,
		sub.DriverPhone, sub.HelperName, sub.HelperPhone, sub.PreferredLanguage,
		pq.Array(sub.Documents), string(sub.Status), sub.CreatedAt, sub.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}
