package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostbay/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new account and returns it.
func (r *Repository) Create(ctx context.Context, email, passwordHash, name, role string) (*models.Account, error) {
	var a models.Account
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, credit_balance, created_at, updated_at
	`, email, passwordHash, name, role)
	if err := row.Scan(&a.ID, &a.CreditBalance, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Email = email
	a.Name = name
	a.Role = role
	return &a, nil
}

// GetByEmail returns the account and password hash for login. Returns nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Account, string, error) {
	var a models.Account
	var passwordHash string
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, name, role, credit_balance, password_hash
		FROM accounts WHERE email = $1
	`, email)
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.CreditBalance, &passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &a, passwordHash, nil
}
