package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hostbay/backend/internal/gateway"
	"github.com/hostbay/backend/internal/models"
)

// gatewayEventOrderPaid is the event name recorded for captured payments
// found during sync and sweep.
const gatewayEventOrderPaid = "order.paid"

func (s *service) Sync(ctx context.Context, recordID uuid.UUID) (int, error) {
	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return 0, err
	}
	inserted, err := s.reconcileOrder(ctx, rec.OrderID)
	if err != nil {
		s.log.Error("failed to sync payment record", "payment_record", recordID, "order_id", rec.OrderID, "error", err)
		return inserted, err
	}
	return inserted, nil
}

func (s *service) SweepPendingOrders(ctx context.Context, hours int) (int, error) {
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	orderIDs, err := s.records.ListPendingOrderIDs(ctx, since)
	if err != nil {
		return 0, err
	}

	var errs []error
	inserted := 0
	for _, orderID := range orderIDs {
		n, err := s.reconcileOrder(ctx, orderID)
		inserted += n
		if err != nil {
			s.log.Error("failed to capture pending order", "order_id", orderID, "error", err)
			errs = append(errs, fmt.Errorf("order %s: %w", orderID, err))
		}
	}
	return inserted, errors.Join(errs...)
}

// reconcileOrder fetches an order's payments and records a deduplicated
// webhook log for every captured item.
func (s *service) reconcileOrder(ctx context.Context, orderID string) (int, error) {
	payments, err := s.gateway.OrderPayments(ctx, orderID)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, p := range payments {
		if p.Status != gateway.StatusCaptured {
			continue
		}
		ok, err := s.webhookLogs.InsertIgnoreDuplicate(ctx, &models.WebhookLog{
			ID:        uuid.New(),
			OrderID:   p.OrderID,
			Event:     gatewayEventOrderPaid,
			PaymentID: p.ID,
			Payload:   p.Raw,
		})
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func (s *service) HandleOrderPaid(ctx context.Context, event, orderID, paymentID string, payload json.RawMessage) error {
	// The log insert is the audit trail, not the processing guard: a capture
	// that failed after the log row landed must still run on redelivery.
	// MarkCaptured's one-way status transition is what keeps processing
	// at-most-once.
	if _, err := s.webhookLogs.InsertIgnoreDuplicate(ctx, &models.WebhookLog{
		ID:        uuid.New(),
		OrderID:   orderID,
		Event:     event,
		PaymentID: paymentID,
		Payload:   payload,
	}); err != nil {
		return err
	}

	rec, err := s.records.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Event for an order we never issued a record for; the log
			// entry alone is the audit trail.
			s.log.Warn("webhook for unknown order", "order_id", orderID, "event", event)
			return nil
		}
		return err
	}
	return s.MarkCaptured(ctx, rec.ID, paymentID)
}
