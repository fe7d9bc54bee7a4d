package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/database"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

const pgUniqueViolation = "23505"

// AccountRepository defines the interface for login credential storage.
type AccountRepository interface {
	// Create inserts an account. Returns apperrors.ErrConflict when the
	// email is already registered (case-insensitive).
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	// Delete removes an account; projects, profile and roles cascade.
	Delete(ctx context.Context, id uuid.UUID) error
}

type accountRepository struct{}

// NewAccountRepository creates a new account repository.
func NewAccountRepository() AccountRepository {
	return &accountRepository{}
}

var _ AccountRepository = (*accountRepository)(nil)

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	query := `
		INSERT INTO accounts (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := scope.Conn.QueryRow(ctx, query, account.Email, account.PasswordHash).
		Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	var a models.Account
	err := scope.Conn.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &a, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	var a models.Account
	err := scope.Conn.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM accounts WHERE lower(email) = lower($1)`, email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return &a, nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
