package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostbay/backend/internal/models"
)

type WebhookLogRepo struct {
	pool *pgxpool.Pool
}

func NewWebhookLogRepo(pool *pgxpool.Pool) *WebhookLogRepo {
	return &WebhookLogRepo{pool: pool}
}

// InsertIgnoreDuplicate inserts the entry keyed by gateway order id.
// A duplicate order id is a no-op; the bool reports whether a row was
// actually written. This is the idempotence boundary for reconciliation.
func (r *WebhookLogRepo) InsertIgnoreDuplicate(ctx context.Context, e *models.WebhookLog) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO webhook_logs (id, order_id, event, payment_id, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) DO NOTHING
	`, e.ID, e.OrderID, e.Event, e.PaymentID, e.Payload)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *WebhookLogRepo) GetByOrderID(ctx context.Context, orderID string) (*models.WebhookLog, error) {
	var e models.WebhookLog
	err := r.pool.QueryRow(ctx, `
		SELECT id, order_id, event, payment_id, payload, created_at
		FROM webhook_logs WHERE order_id = $1
	`, orderID).Scan(&e.ID, &e.OrderID, &e.Event, &e.PaymentID, &e.Payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
