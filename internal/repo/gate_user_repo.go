package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gatescan/terminal/internal/model"
)

// GateUserRepo defines the interface for operator account storage.
type GateUserRepo interface {
	GetByID(ctx context.Context, id string) (model.GateUser, error)
	GetByUsername(ctx context.Context, username string) (model.GateUser, error)
	CreateIfMissing(ctx context.Context, username string, passwordHash []byte) error
}

type gateUserRepo struct {
	db *sql.DB
}

// NewGateUserRepo creates a new GateUserRepo instance.
func NewGateUserRepo(db *sql.DB) GateUserRepo {
	return &gateUserRepo{db: db}
}

func (r *gateUserRepo) scanUser(row *sql.Row) (model.GateUser, error) {
	var user model.GateUser
	var idStr string
	err := row.Scan(&idStr, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.GateUser{}, ErrNotFound
		}
		return model.GateUser{}, fmt.Errorf("failed to query gate user: %w", err)
	}
	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.GateUser{}, fmt.Errorf("failed to parse gate user ID: %w", err)
	}
	return user, nil
}

// GetByID retrieves an operator account by ID.
func (r *gateUserRepo) GetByID(ctx context.Context, id string) (model.GateUser, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM gate_users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername retrieves an operator account by username.
func (r *gateUserRepo) GetByUsername(ctx context.Context, username string) (model.GateUser, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM gate_users
		WHERE username = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

// CreateIfMissing inserts an operator account unless the username exists.
func (r *gateUserRepo) CreateIfMissing(ctx context.Context, username string, passwordHash []byte) error {
	query := `
		INSERT INTO gate_users (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, username, passwordHash); err != nil {
		return fmt.Errorf("failed to insert gate user: %w", err)
	}
	return nil
}
