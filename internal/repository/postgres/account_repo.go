// internal/repository/postgres/account_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"memoriza-service/internal/domain/auth"
	xerrors "memoriza-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindAccount looks an account up by e-mail, case-insensitively
func (r *AccountRepository) FindAccount(ctx context.Context, email string) (*auth.Account, error) {
	query := `
		SELECT id, email, password_hash, first_name, last_name, phone, is_admin,
		       employee_group_id, user_group_id, created_at
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`

	var a auth.Account
	err := r.db.QueryRow(ctx, query, strings.TrimSpace(email)).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Phone, &a.IsAdmin,
		&a.EmployeeGroupID, &a.UserGroupID, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	return &a, nil
}

// CreateAccount inserts a, filling ID and CreatedAt
func (r *AccountRepository) CreateAccount(ctx context.Context, a *auth.Account) error {
	query := `
		INSERT INTO accounts (email, password_hash, first_name, last_name, phone, is_admin,
		                      employee_group_id, user_group_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		a.Email, a.PasswordHash, a.FirstName, a.LastName, a.Phone, a.IsAdmin,
		a.EmployeeGroupID, a.UserGroupID,
	).Scan(&a.ID, &a.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return xerrors.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}
