package ledger

import (
	"context"

	"github.com/google/uuid"
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

// AllocateCredit runs inside the caller's transaction. It:
// a) Adjusts the account's credit_balance by amount (negative for applied credit)
// b) Inserts a balance_transactions row recording the allocation
func (r *Repository) AllocateCredit(ctx context.Context, tx pgx.Tx, t *models.BalanceTransaction) error {
	err := tx.QueryRow(ctx, `
		UPDATE accounts SET credit_balance = credit_balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING credit_balance
	`, t.Amount, t.AccountID).Scan(&t.BalanceAfter)
	if err != nil {
		return err
	}
	return tx.QueryRow(ctx, `
		INSERT INTO balance_transactions (id, account_id, amount, source, type, remark, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.AccountID, t.Amount, t.Source, t.Type, t.Remark, t.BalanceAfter).Scan(&t.CreatedAt)
}

func (r *Repository) Balance(ctx context.Context, accountID uuid.UUID) (float64, error) {
	var balance float64
	err := r.pool.QueryRow(ctx, `
		SELECT credit_balance FROM accounts WHERE id = $1
	`, accountID).Scan(&balance)
	return balance, err
}

func (r *Repository) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.BalanceTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, amount, source, type, remark, balance_after, created_at
		FROM balance_transactions WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.BalanceTransaction
	for rows.Next() {
		var t models.BalanceTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Source, &t.Type, &t.Remark, &t.BalanceAfter, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
