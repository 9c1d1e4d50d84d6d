package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gatescan/terminal/internal/model"
)

// TokenRepo defines the interface for issued entry token storage.
type TokenRepo interface {
	Create(ctx context.Context, token model.EntryToken) error
	CountForSubmission(ctx context.Context, submissionID string) (int, error)
}

type tokenRepo struct {
	db *sql.DB
}

// NewTokenRepo creates a new TokenRepo instance.
func NewTokenRepo(db *sql.DB) TokenRepo {
	return &tokenRepo{db: db}
}

// Create records an issued entry token.
func (r *tokenRepo) Create(ctx context.Context, token model.EntryToken) error {
	query := `
		INSERT INTO entry_tokens (submission_id, token_number, sent_to, provider)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.SubmissionID, token.TokenNumber, token.SentTo, token.Provider)
	if err != nil {
		return fmt.Errorf("failed to insert entry token: %w", err)
	}
	return nil
}

// CountForSubmission returns how many tokens were issued for a submission.
func (r *tokenRepo) CountForSubmission(ctx context.Context, submissionID string) (int, error) {
	query := `SELECT COUNT(*) FROM entry_tokens WHERE submission_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, submissionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entry tokens: %w", err)
	}
	return count, nil
}
