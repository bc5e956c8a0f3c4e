package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hostbay/backend/internal/gateway"
	"github.com/hostbay/backend/internal/ledger"
	"github.com/hostbay/backend/internal/models"
	"github.com/hostbay/backend/internal/workers"
)

// RecordRepo is the payment record storage contract.
type RecordRepo interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, p *models.PaymentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.PaymentRecord, error)
	MarkCapturedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, paymentID string) (bool, error)
	ListPendingOrderIDs(ctx context.Context, since time.Time) ([]string, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.PaymentRecord, error)
}

// InvoiceStore is the invoice storage contract.
type InvoiceStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, inv *models.Invoice) error
	UpdateGatewayDetailsTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, paymentID, method string, fee float64) error
	SubmitTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	ListUnpaidByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Invoice, error)
	MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountPaid float64) error
}

// WebhookLogStore deduplicates gateway events by order id.
type WebhookLogStore interface {
	InsertIgnoreDuplicate(ctx context.Context, e *models.WebhookLog) (bool, error)
}

// InsertFinalizeTxFunc enqueues invoice finalization within the given
// transaction, so the job only runs after commit. Provided by main using
// river.Client.InsertTx.
type InsertFinalizeTxFunc func(ctx context.Context, tx pgx.Tx, args workers.FinalizeInvoicesArgs) error

type Service interface {
	CreateRecord(ctx context.Context, accountID uuid.UUID, orderID, recordType string) (*models.PaymentRecord, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error)
	ListRecords(ctx context.Context, accountID uuid.UUID) ([]*models.PaymentRecord, error)

	// MarkCaptured transitions the record to Captured and runs capture
	// processing exactly once. Fail-loud: gateway or ledger errors
	// propagate; the status transition is not rolled back on its own.
	MarkCaptured(ctx context.Context, recordID uuid.UUID, paymentID string) error

	// Sync fetches the record's order payments and inserts deduplicated
	// webhook logs for captured items. Returns the number inserted.
	Sync(ctx context.Context, recordID uuid.UUID) (int, error)

	// SweepPendingOrders reconciles Pending records newer than the age
	// threshold. Per-order failures are collected, not fatal.
	SweepPendingOrders(ctx context.Context, hours int) (int, error)

	// HandleOrderPaid processes an inbound gateway webhook event.
	HandleOrderPaid(ctx context.Context, event, orderID, paymentID string, payload json.RawMessage) error

	FinalizeUnpaidInvoices(ctx context.Context, accountID uuid.UUID) error
}

type service struct {
	records        RecordRepo
	invoices       InvoiceStore
	webhookLogs    WebhookLogStore
	ledger         ledger.Service
	gateway        gateway.Client
	insertFinalize InsertFinalizeTxFunc
	log            *slog.Logger
}

// NewService creates the billing service. insertFinalize is typically a
// closure over river.Client.InsertTx.
func NewService(records RecordRepo, invoices InvoiceStore, webhookLogs WebhookLogStore, ledgerSvc ledger.Service, gw gateway.Client, insertFinalize InsertFinalizeTxFunc, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{
		records:        records,
		invoices:       invoices,
		webhookLogs:    webhookLogs,
		ledger:         ledgerSvc,
		gateway:        gw,
		insertFinalize: insertFinalize,
		log:            log,
	}
}

var _ Service = (*service)(nil)

func (s *service) CreateRecord(ctx context.Context, accountID uuid.UUID, orderID, recordType string) (*models.PaymentRecord, error) {
	if recordType != models.PaymentTypePrepaidCredits && recordType != models.PaymentTypePartnershipFee {
		return nil, fmt.Errorf("invalid payment record type %q", recordType)
	}
	rec := &models.PaymentRecord{
		ID:        uuid.New(),
		AccountID: accountID,
		OrderID:   orderID,
		Status:    models.PaymentStatusPending,
		Type:      recordType,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *service) GetRecord(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error) {
	return s.records.GetByID(ctx, id)
}

func (s *service) ListRecords(ctx context.Context, accountID uuid.UUID) ([]*models.PaymentRecord, error) {
	return s.records.ListByAccountID(ctx, accountID)
}

func (s *service) MarkCaptured(ctx context.Context, recordID uuid.UUID, paymentID string) error {
	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if paymentID == "" {
		paymentID = rec.PaymentID
	}
	if paymentID == "" {
		return fmt.Errorf("payment record %s has no payment id", recordID)
	}

	tx, err := s.records.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	transitioned, err := s.records.MarkCapturedTx(ctx, tx, recordID, paymentID)
	if err != nil {
		return err
	}
	if !transitioned {
		// Already Captured; processing ran on the first transition.
		return nil
	}

	switch rec.Type {
	case models.PaymentTypePrepaidCredits:
		err = s.processCapture(ctx, tx, rec, paymentID, models.InvoiceTypePrepaidCredits, "", true)
	case models.PaymentTypePartnershipFee:
		err = s.processCapture(ctx, tx, rec, paymentID, models.InvoiceTypePartnershipFees, models.AllocationPartnershipFee, false)
	default:
		err = fmt.Errorf("unknown payment record type %q", rec.Type)
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// processCapture credits the owning account and generates the paid invoice.
// amount = gross/100 minus the gst declared in the payment notes.
func (s *service) processCapture(ctx context.Context, tx pgx.Tx, rec *models.PaymentRecord, paymentID, invoiceType, allocType string, enqueueFinalize bool) error {
	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	amountWithTax := payment.AmountUnits()
	gst := payment.GST()
	amount := amountWithTax - gst

	balanceTx, err := s.ledger.AllocateCredit(ctx, tx, rec.AccountID, amount,
		models.BalanceSourcePrepaidCredits, fmt.Sprintf("Razorpay: %s", paymentID), allocType)
	if err != nil {
		return err
	}

	itemDescription := rec.Type
	inv := &models.Invoice{
		ID:               uuid.New(),
		AccountID:        rec.AccountID,
		Type:             invoiceType,
		Status:           models.InvoiceStatusPaid,
		DueDate:          time.Unix(payment.CreatedAt, 0),
		Total:            amount,
		AmountDue:        amount,
		GST:              gst,
		AmountDueWithTax: amountWithTax,
		AmountPaid:       amountWithTax,
		GatewayOrderID:   rec.OrderID,
		PaymentRecordID:  &rec.ID,
		Items: []models.InvoiceItem{{
			ID:           uuid.New(),
			Description:  itemDescription,
			DocumentType: "Balance Transaction",
			DocumentID:   balanceTx.ID,
			Quantity:     1,
			Rate:         amount,
		}},
	}
	if err := s.invoices.CreateTx(ctx, tx, inv); err != nil {
		return err
	}
	if err := s.invoices.UpdateGatewayDetailsTx(ctx, tx, inv.ID, payment.ID, payment.Method, float64(payment.Fee)/100); err != nil {
		return err
	}
	if err := s.invoices.SubmitTx(ctx, tx, inv.ID); err != nil {
		return err
	}

	if enqueueFinalize {
		return s.insertFinalize(ctx, tx, workers.FinalizeInvoicesArgs{AccountID: rec.AccountID})
	}
	return nil
}

// FinalizeUnpaidInvoices settles unpaid invoices oldest-first while the
// account's credit balance covers them. Captures only ever create Paid
// invoices; unpaid ones originate outside this service (subscription
// billing writes them directly).
func (s *service) FinalizeUnpaidInvoices(ctx context.Context, accountID uuid.UUID) error {
	unpaid, err := s.invoices.ListUnpaidByAccountID(ctx, accountID)
	if err != nil {
		return err
	}
	if len(unpaid) == 0 {
		return nil
	}
	balance, err := s.ledger.Balance(ctx, accountID)
	if err != nil {
		return err
	}

	tx, err := s.records.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, inv := range unpaid {
		if balance < inv.AmountDueWithTax {
			break
		}
		if _, err := s.ledger.AllocateCredit(ctx, tx, accountID, -inv.AmountDueWithTax,
			models.BalanceSourceApplied, fmt.Sprintf("Invoice: %s", inv.ID), ""); err != nil {
			return err
		}
		if err := s.invoices.MarkPaidTx(ctx, tx, inv.ID, inv.AmountDueWithTax); err != nil {
			return err
		}
		balance -= inv.AmountDueWithTax
	}
	return tx.Commit(ctx)
}
