package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostbay/backend/internal/models"
)

type InvoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

// CreateTx inserts the invoice and its line items inside the given transaction.
func (r *InvoiceRepo) CreateTx(ctx context.Context, tx pgx.Tx, inv *models.Invoice) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO invoices (id, account_id, type, status, due_date, total, amount_due, gst, amount_due_with_tax, amount_paid, gateway_order_id, payment_record_id, submitted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, inv.ID, inv.AccountID, inv.Type, inv.Status, inv.DueDate, inv.Total, inv.AmountDue, inv.GST, inv.AmountDueWithTax, inv.AmountPaid, inv.GatewayOrderID, inv.PaymentRecordID, inv.Submitted).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return err
	}
	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = inv.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO invoice_items (id, invoice_id, description, document_type, document_id, quantity, rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, item.ID, item.InvoiceID, item.Description, item.DocumentType, item.DocumentID, item.Quantity, item.Rate); err != nil {
			return err
		}
	}
	return nil
}

// UpdateGatewayDetailsTx attaches the gateway transaction metadata reported
// for the settled payment.
func (r *InvoiceRepo) UpdateGatewayDetailsTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, paymentID, method string, fee float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE invoices SET gateway_payment_id = $2, payment_method = $3, gateway_fee = $4, updated_at = now()
		WHERE id = $1
	`, id, paymentID, method, fee)
	return err
}

// SubmitTx finalizes the invoice. Submitted invoices are immutable.
func (r *InvoiceRepo) SubmitTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE invoices SET submitted = TRUE, updated_at = now() WHERE id = $1 AND NOT submitted
	`, id)
	return err
}

func (r *InvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.pool.QueryRow(ctx, `
		SELECT id, account_id, type, status, due_date, total, amount_due, gst, amount_due_with_tax, amount_paid, gateway_order_id, payment_record_id, payment_method, gateway_payment_id, gateway_fee, submitted, created_at, updated_at
		FROM invoices WHERE id = $1
	`, id).Scan(&inv.ID, &inv.AccountID, &inv.Type, &inv.Status, &inv.DueDate, &inv.Total, &inv.AmountDue, &inv.GST, &inv.AmountDueWithTax, &inv.AmountPaid, &inv.GatewayOrderID, &inv.PaymentRecordID, &inv.PaymentMethod, &inv.GatewayPaymentID, &inv.GatewayFee, &inv.Submitted, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListUnpaidByAccountID returns unpaid submitted invoices, oldest first,
// for balance-driven finalization.
func (r *InvoiceRepo) ListUnpaidByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, type, status, due_date, total, amount_due, gst, amount_due_with_tax, amount_paid, gateway_order_id, payment_record_id, payment_method, gateway_payment_id, gateway_fee, submitted, created_at, updated_at
		FROM invoices
		WHERE account_id = $1 AND status = $2 AND submitted
		ORDER BY due_date
	`, accountID, models.InvoiceStatusUnpaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Invoice
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.AccountID, &inv.Type, &inv.Status, &inv.DueDate, &inv.Total, &inv.AmountDue, &inv.GST, &inv.AmountDueWithTax, &inv.AmountPaid, &inv.GatewayOrderID, &inv.PaymentRecordID, &inv.PaymentMethod, &inv.GatewayPaymentID, &inv.GatewayFee, &inv.Submitted, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &inv)
	}
	return list, rows.Err()
}

// MarkPaidTx marks an unpaid invoice paid with the amount settled from the
// account balance.
func (r *InvoiceRepo) MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountPaid float64) error {
	_, err := tx.Exec(ctx, `
		UPDATE invoices SET status = $2, amount_paid = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, models.InvoiceStatusPaid, amountPaid, models.InvoiceStatusUnpaid)
	return err
}
