package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostbay/backend/internal/models"
)

type PaymentRecordRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRecordRepo(pool *pgxpool.Pool) *PaymentRecordRepo {
	return &PaymentRecordRepo{pool: pool}
}

func (r *PaymentRecordRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *PaymentRecordRepo) Create(ctx context.Context, p *models.PaymentRecord) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO payment_records (id, account_id, order_id, payment_id, signature, status, type, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, p.ID, p.AccountID, p.OrderID, p.PaymentID, p.Signature, p.Status, p.Type, p.FailureReason).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *PaymentRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, account_id, order_id, payment_id, signature, status, type, failure_reason, created_at, updated_at
		FROM payment_records WHERE id = $1
	`, id).Scan(&p.ID, &p.AccountID, &p.OrderID, &p.PaymentID, &p.Signature, &p.Status, &p.Type, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRecordRepo) GetByOrderID(ctx context.Context, orderID string) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, account_id, order_id, payment_id, signature, status, type, failure_reason, created_at, updated_at
		FROM payment_records WHERE order_id = $1
	`, orderID).Scan(&p.ID, &p.AccountID, &p.OrderID, &p.PaymentID, &p.Signature, &p.Status, &p.Type, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkCapturedTx flips status to Captured inside the caller's transaction.
// The conditional WHERE makes the transition one-way: a record already
// Captured is left untouched and false is returned, which is what keeps
// capture processing at-most-once.
func (r *PaymentRecordRepo) MarkCapturedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, paymentID string) (bool, error) {
	result, err := tx.Exec(ctx, `
		UPDATE payment_records
		SET status = $2, payment_id = COALESCE(NULLIF($3, ''), payment_id), updated_at = now()
		WHERE id = $1 AND status <> $2
	`, id, models.PaymentStatusCaptured, paymentID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// ListPendingOrderIDs returns order ids of Pending records created at or
// after the cutoff, for the reconciliation sweep.
func (r *PaymentRecordRepo) ListPendingOrderIDs(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT order_id FROM payment_records
		WHERE status = $1 AND created_at >= $2
		ORDER BY created_at
	`, models.PaymentStatusPending, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PaymentRecordRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.PaymentRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, order_id, payment_id, signature, status, type, failure_reason, created_at, updated_at
		FROM payment_records WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.PaymentRecord
	for rows.Next() {
		var p models.PaymentRecord
		if err := rows.Scan(&p.ID, &p.AccountID, &p.OrderID, &p.PaymentID, &p.Signature, &p.Status, &p.Type, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
