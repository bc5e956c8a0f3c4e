package billing

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hostbay/backend/internal/gateway"
	"github.com/hostbay/backend/internal/models"
	"github.com/hostbay/backend/internal/workers"
)

// ---------------------------------------------------------------------------
// In-memory mocks. These let us test the real billing logic without a
// database or the live gateway.
// ---------------------------------------------------------------------------

// fakeTx satisfies pgx.Tx for code paths that only Commit/Rollback; any
// other method panics, which is what we want in a unit test.
type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type mockRecords struct {
	byID      map[uuid.UUID]*models.PaymentRecord
	byOrder   map[string]*models.PaymentRecord
	pending   []string
	lastSince time.Time
}

func newMockRecords(recs ...*models.PaymentRecord) *mockRecords {
	m := &mockRecords{byID: map[uuid.UUID]*models.PaymentRecord{}, byOrder: map[string]*models.PaymentRecord{}}
	for _, r := range recs {
		m.byID[r.ID] = r
		m.byOrder[r.OrderID] = r
	}
	return m
}

func (m *mockRecords) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

func (m *mockRecords) Create(_ context.Context, p *models.PaymentRecord) error {
	m.byID[p.ID] = p
	m.byOrder[p.OrderID] = p
	return nil
}

func (m *mockRecords) GetByID(_ context.Context, id uuid.UUID) (*models.PaymentRecord, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r, nil
}

func (m *mockRecords) GetByOrderID(_ context.Context, orderID string) (*models.PaymentRecord, error) {
	r, ok := m.byOrder[orderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r, nil
}

func (m *mockRecords) MarkCapturedTx(_ context.Context, _ pgx.Tx, id uuid.UUID, paymentID string) (bool, error) {
	r, ok := m.byID[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if r.Status == models.PaymentStatusCaptured {
		return false, nil
	}
	r.Status = models.PaymentStatusCaptured
	if paymentID != "" {
		r.PaymentID = paymentID
	}
	return true, nil
}

func (m *mockRecords) ListPendingOrderIDs(_ context.Context, since time.Time) ([]string, error) {
	m.lastSince = since
	return m.pending, nil
}

func (m *mockRecords) ListByAccountID(_ context.Context, accountID uuid.UUID) ([]*models.PaymentRecord, error) {
	var out []*models.PaymentRecord
	for _, r := range m.byID {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockInvoices struct {
	created   []*models.Invoice
	submitted map[uuid.UUID]bool
	details   map[uuid.UUID]string
	unpaid    []*models.Invoice
	paid      map[uuid.UUID]float64
}

func newMockInvoices() *mockInvoices {
	return &mockInvoices{submitted: map[uuid.UUID]bool{}, details: map[uuid.UUID]string{}, paid: map[uuid.UUID]float64{}}
}

func (m *mockInvoices) CreateTx(_ context.Context, _ pgx.Tx, inv *models.Invoice) error {
	cp := *inv
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockInvoices) UpdateGatewayDetailsTx(_ context.Context, _ pgx.Tx, id uuid.UUID, paymentID, _ string, _ float64) error {
	m.details[id] = paymentID
	return nil
}

func (m *mockInvoices) SubmitTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	m.submitted[id] = true
	return nil
}

func (m *mockInvoices) ListUnpaidByAccountID(_ context.Context, _ uuid.UUID) ([]*models.Invoice, error) {
	return m.unpaid, nil
}

func (m *mockInvoices) MarkPaidTx(_ context.Context, _ pgx.Tx, id uuid.UUID, amountPaid float64) error {
	m.paid[id] = amountPaid
	return nil
}

type mockWebhookLogs struct {
	byOrder map[string]*models.WebhookLog
}

func newMockWebhookLogs() *mockWebhookLogs {
	return &mockWebhookLogs{byOrder: map[string]*models.WebhookLog{}}
}

func (m *mockWebhookLogs) InsertIgnoreDuplicate(_ context.Context, e *models.WebhookLog) (bool, error) {
	if _, ok := m.byOrder[e.OrderID]; ok {
		return false, nil
	}
	m.byOrder[e.OrderID] = e
	return true, nil
}

type mockLedger struct {
	entries []*models.BalanceTransaction
	balance float64
}

func (m *mockLedger) AllocateCredit(_ context.Context, _ pgx.Tx, accountID uuid.UUID, amount float64, source, remark, allocType string) (*models.BalanceTransaction, error) {
	m.balance += amount
	t := &models.BalanceTransaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Amount:       amount,
		Source:       source,
		Type:         allocType,
		Remark:       remark,
		BalanceAfter: m.balance,
	}
	m.entries = append(m.entries, t)
	return t, nil
}

func (m *mockLedger) Balance(context.Context, uuid.UUID) (float64, error) {
	return m.balance, nil
}

type mockGateway struct {
	payments map[string]*gateway.Payment
	orders   map[string][]*gateway.Payment
	orderErr map[string]error
}

func (m *mockGateway) FetchPayment(_ context.Context, id string) (*gateway.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", id)
	}
	return p, nil
}

func (m *mockGateway) OrderPayments(_ context.Context, orderID string) ([]*gateway.Payment, error) {
	if err := m.orderErr[orderID]; err != nil {
		return nil, err
	}
	return m.orders[orderID], nil
}

func (m *mockGateway) VerifyWebhookSignature([]byte, string) bool { return true }

type testEnv struct {
	records   *mockRecords
	invoices  *mockInvoices
	logs      *mockWebhookLogs
	ledger    *mockLedger
	gw        *mockGateway
	finalized []uuid.UUID
	svc       Service
}

func newTestEnv(recs ...*models.PaymentRecord) *testEnv {
	env := &testEnv{
		records:  newMockRecords(recs...),
		invoices: newMockInvoices(),
		logs:     newMockWebhookLogs(),
		ledger:   &mockLedger{},
		gw:       &mockGateway{payments: map[string]*gateway.Payment{}, orders: map[string][]*gateway.Payment{}, orderErr: map[string]error{}},
	}
	insertFinalize := func(_ context.Context, _ pgx.Tx, args workers.FinalizeInvoicesArgs) error {
		env.finalized = append(env.finalized, args.AccountID)
		return nil
	}
	env.svc = NewService(env.records, env.invoices, env.logs, env.ledger, env.gw, insertFinalize, slog.Default())
	return env
}

func pendingRecord(recordType string) *models.PaymentRecord {
	return &models.PaymentRecord{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		OrderID:   "order_DaaS6LOUAASb7Y",
		PaymentID: "pay_JhOBNkFZFi0EOX",
		Status:    models.PaymentStatusPending,
		Type:      recordType,
		CreatedAt: time.Now(),
	}
}

// ---------------------------------------------------------------------------
// Capture processing
// ---------------------------------------------------------------------------

func TestMarkCapturedPrepaidCredits(t *testing.T) {
	rec := pendingRecord(models.PaymentTypePrepaidCredits)
	env := newTestEnv(rec)
	env.gw.payments[rec.PaymentID] = &gateway.Payment{
		ID:        rec.PaymentID,
		OrderID:   rec.OrderID,
		Amount:    10000,
		Status:    gateway.StatusCaptured,
		Method:    "card",
		CreatedAt: 1655212834,
		Notes:     map[string]any{"gst": "18.0"},
	}

	if err := env.svc.MarkCaptured(context.Background(), rec.ID, rec.PaymentID); err != nil {
		t.Fatalf("MarkCaptured: %v", err)
	}

	// gross=10000 paise, gst=18.0 -> amount=82.0, with tax 100.0.
	if len(env.ledger.entries) != 1 {
		t.Fatalf("ledger entries: got %d, want 1", len(env.ledger.entries))
	}
	credit := env.ledger.entries[0]
	if credit.Amount != 82.0 {
		t.Errorf("credit amount: got %v, want 82.0", credit.Amount)
	}
	if credit.Type != "" {
		t.Errorf("credit type: got %q, want empty", credit.Type)
	}
	if want := "Razorpay: " + rec.PaymentID; credit.Remark != want {
		t.Errorf("credit remark: got %q, want %q", credit.Remark, want)
	}

	if len(env.invoices.created) != 1 {
		t.Fatalf("invoices created: got %d, want 1", len(env.invoices.created))
	}
	inv := env.invoices.created[0]
	if inv.Type != models.InvoiceTypePrepaidCredits || inv.Status != models.InvoiceStatusPaid {
		t.Errorf("invoice type/status: got %q/%q", inv.Type, inv.Status)
	}
	if inv.Total != 82.0 || inv.AmountDue != 82.0 {
		t.Errorf("invoice total/amount_due: got %v/%v, want 82.0/82.0", inv.Total, inv.AmountDue)
	}
	if inv.GST != 18.0 || inv.AmountDueWithTax != 100.0 || inv.AmountPaid != 100.0 {
		t.Errorf("invoice gst/with_tax/paid: got %v/%v/%v, want 18/100/100", inv.GST, inv.AmountDueWithTax, inv.AmountPaid)
	}
	if inv.DueDate.Unix() != 1655212834 {
		t.Errorf("invoice due date: got %d, want gateway created_at", inv.DueDate.Unix())
	}
	if len(inv.Items) != 1 || inv.Items[0].DocumentID != credit.ID {
		t.Errorf("invoice item should reference the balance transaction")
	}
	if inv.Items[0].Rate != 82.0 {
		t.Errorf("item rate: got %v, want 82.0", inv.Items[0].Rate)
	}
	if !env.invoices.submitted[inv.ID] {
		t.Errorf("invoice was not submitted")
	}
	if env.invoices.details[inv.ID] != rec.PaymentID {
		t.Errorf("gateway details not attached before submit")
	}

	// Prepaid credits trigger downstream invoice finalization.
	if len(env.finalized) != 1 || env.finalized[0] != rec.AccountID {
		t.Errorf("finalize enqueue: got %v, want [%s]", env.finalized, rec.AccountID)
	}
}

func TestMarkCapturedPartnershipFee(t *testing.T) {
	rec := pendingRecord(models.PaymentTypePartnershipFee)
	env := newTestEnv(rec)
	env.gw.payments[rec.PaymentID] = &gateway.Payment{
		ID:        rec.PaymentID,
		OrderID:   rec.OrderID,
		Amount:    50000,
		Status:    gateway.StatusCaptured,
		CreatedAt: 1655212834,
	}

	if err := env.svc.MarkCaptured(context.Background(), rec.ID, rec.PaymentID); err != nil {
		t.Fatalf("MarkCaptured: %v", err)
	}

	// No gst note -> amount equals gross/100.
	credit := env.ledger.entries[0]
	if credit.Amount != 500.0 {
		t.Errorf("credit amount: got %v, want 500.0", credit.Amount)
	}
	if credit.Type != models.AllocationPartnershipFee {
		t.Errorf("credit type: got %q, want %q", credit.Type, models.AllocationPartnershipFee)
	}
	if got := env.invoices.created[0].Type; got != models.InvoiceTypePartnershipFees {
		t.Errorf("invoice type: got %q, want %q", got, models.InvoiceTypePartnershipFees)
	}
	// Partnership fees do not enqueue finalization.
	if len(env.finalized) != 0 {
		t.Errorf("finalize enqueue: got %v, want none", env.finalized)
	}
}

func TestMarkCapturedProcessesOnce(t *testing.T) {
	rec := pendingRecord(models.PaymentTypePrepaidCredits)
	env := newTestEnv(rec)
	env.gw.payments[rec.PaymentID] = &gateway.Payment{
		ID: rec.PaymentID, OrderID: rec.OrderID, Amount: 10000, CreatedAt: 1655212834,
	}

	if err := env.svc.MarkCaptured(context.Background(), rec.ID, rec.PaymentID); err != nil {
		t.Fatalf("first MarkCaptured: %v", err)
	}
	if err := env.svc.MarkCaptured(context.Background(), rec.ID, rec.PaymentID); err != nil {
		t.Fatalf("second MarkCaptured: %v", err)
	}

	if len(env.invoices.created) != 1 {
		t.Errorf("invoices created: got %d, want exactly 1", len(env.invoices.created))
	}
	if len(env.ledger.entries) != 1 {
		t.Errorf("ledger entries: got %d, want exactly 1", len(env.ledger.entries))
	}
}

func TestMarkCapturedGatewayFailurePropagates(t *testing.T) {
	rec := pendingRecord(models.PaymentTypePrepaidCredits)
	env := newTestEnv(rec)
	// No payment registered in the mock gateway.

	if err := env.svc.MarkCaptured(context.Background(), rec.ID, rec.PaymentID); err == nil {
		t.Fatalf("expected gateway error to propagate")
	}
	if len(env.invoices.created) != 0 {
		t.Errorf("no invoice should be created on gateway failure")
	}
}

// ---------------------------------------------------------------------------
// Invoice finalization
// ---------------------------------------------------------------------------

func TestFinalizeUnpaidInvoices(t *testing.T) {
	accountID := uuid.New()
	env := newTestEnv()
	env.ledger.balance = 100.0

	first := &models.Invoice{ID: uuid.New(), AccountID: accountID, Status: models.InvoiceStatusUnpaid, AmountDueWithTax: 60.0}
	second := &models.Invoice{ID: uuid.New(), AccountID: accountID, Status: models.InvoiceStatusUnpaid, AmountDueWithTax: 60.0}
	env.invoices.unpaid = []*models.Invoice{first, second}

	if err := env.svc.FinalizeUnpaidInvoices(context.Background(), accountID); err != nil {
		t.Fatalf("FinalizeUnpaidInvoices: %v", err)
	}

	// Balance 100 covers the first invoice (60) but not the second.
	if _, ok := env.invoices.paid[first.ID]; !ok {
		t.Errorf("first invoice should be paid")
	}
	if _, ok := env.invoices.paid[second.ID]; ok {
		t.Errorf("second invoice should remain unpaid")
	}
	if len(env.ledger.entries) != 1 || env.ledger.entries[0].Amount != -60.0 {
		t.Errorf("expected one applied credit of -60.0, got %+v", env.ledger.entries)
	}
}
