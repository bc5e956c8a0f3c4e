package console

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hostbay/backend/internal/models"
	"github.com/hostbay/backend/internal/workers"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error { t.rolledBack = true; return nil }

type mockLogs struct {
	byID     map[uuid.UUID]*models.SerialConsoleLog
	tx       *fakeTx
	statuses []string
}

func newMockLogs() *mockLogs {
	return &mockLogs{byID: make(map[uuid.UUID]*models.SerialConsoleLog)}
}

func (m *mockLogs) Begin(context.Context) (pgx.Tx, error) {
	m.tx = &fakeTx{}
	return m.tx, nil
}

func (m *mockLogs) CreateTx(_ context.Context, _ pgx.Tx, l *models.SerialConsoleLog) error {
	l.CreatedAt = time.Now()
	m.byID[l.ID] = l
	return nil
}

func (m *mockLogs) GetByID(_ context.Context, id uuid.UUID) (*models.SerialConsoleLog, error) {
	l, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return l, nil
}

func (m *mockLogs) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	m.byID[id].Status = status
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockLogs) Finish(_ context.Context, id uuid.UUID, status, output, errMsg string) error {
	l := m.byID[id]
	l.Status = status
	l.Output = output
	l.Error = errMsg
	m.statuses = append(m.statuses, status)
	return nil
}

type mockVMs struct {
	byID map[uuid.UUID]*models.VirtualMachine
}

func (m *mockVMs) GetByID(_ context.Context, id uuid.UUID) (*models.VirtualMachine, error) {
	vm, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return vm, nil
}

func testVM() *models.VirtualMachine {
	return &models.VirtualMachine{
		ID:          uuid.New(),
		Name:        "vm-test",
		ConsoleUser: "serialuser",
		ConsoleHost: "console.example.com",
		ConsolePort: 22,
	}
}

func TestRequestRebootEnqueuesInTransaction(t *testing.T) {
	vm := testVM()
	logs := newMockLogs()
	vms := &mockVMs{byID: map[uuid.UUID]*models.VirtualMachine{vm.ID: vm}}

	var enqueued []workers.RebootArgs
	insert := func(_ context.Context, tx pgx.Tx, args workers.RebootArgs) error {
		if tx == nil {
			t.Errorf("reboot job must be enqueued inside the transaction")
		}
		enqueued = append(enqueued, args)
		return nil
	}

	svc := NewService(logs, vms, nil, nil, insert, slog.Default())
	entry, err := svc.RequestReboot(context.Background(), vm.ID)
	if err != nil {
		t.Fatalf("RequestReboot: %v", err)
	}

	if entry.Status != models.ConsoleLogStatusPending {
		t.Errorf("status: got %q, want Pending", entry.Status)
	}
	if len(enqueued) != 1 || enqueued[0].ConsoleLogID != entry.ID {
		t.Errorf("enqueued args: got %+v, want the created log id", enqueued)
	}
	if !logs.tx.committed {
		t.Errorf("transaction was not committed")
	}
}

func TestRequestRebootUnknownVM(t *testing.T) {
	logs := newMockLogs()
	vms := &mockVMs{byID: map[uuid.UUID]*models.VirtualMachine{}}
	svc := NewService(logs, vms, nil, nil, nil, slog.Default())

	if _, err := svc.RequestReboot(context.Background(), uuid.New()); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for unknown vm, got %v", err)
	}
	if len(logs.byID) != 0 {
		t.Errorf("no console log should be created for an unknown vm")
	}
}

func TestExecuteRebootSuccess(t *testing.T) {
	vm := testVM()
	logs := newMockLogs()
	vms := &mockVMs{byID: map[uuid.UUID]*models.VirtualMachine{vm.ID: vm}}
	entry := &models.SerialConsoleLog{ID: uuid.New(), VirtualMachineID: vm.ID, Status: models.ConsoleLogStatusPending}
	logs.byID[entry.ID] = entry

	sess := &scriptSession{script: []error{nil, nil, nil, nil}}
	var dialed Credentials
	dial := func(creds Credentials) (Session, error) {
		dialed = creds
		return sess, nil
	}

	svc := NewService(logs, vms, quietDriver(), dial, nil, slog.Default())
	if err := svc.ExecuteReboot(context.Background(), entry.ID); err != nil {
		t.Fatalf("ExecuteReboot: %v", err)
	}

	if dialed.User != vm.ConsoleUser || dialed.Host != vm.ConsoleHost || dialed.Port != vm.ConsolePort {
		t.Errorf("dialed credentials: got %+v, want vm console endpoint", dialed)
	}
	want := []string{models.ConsoleLogStatusRunning, models.ConsoleLogStatusSuccess}
	if len(logs.statuses) != 2 || logs.statuses[0] != want[0] || logs.statuses[1] != want[1] {
		t.Errorf("status transitions: got %v, want %v", logs.statuses, want)
	}
	if entry.Output != "console transcript" {
		t.Errorf("transcript not recorded, got %q", entry.Output)
	}
	if !sess.closed {
		t.Errorf("session should be closed")
	}
}

func TestExecuteRebootDialFailure(t *testing.T) {
	vm := testVM()
	logs := newMockLogs()
	vms := &mockVMs{byID: map[uuid.UUID]*models.VirtualMachine{vm.ID: vm}}
	entry := &models.SerialConsoleLog{ID: uuid.New(), VirtualMachineID: vm.ID}
	logs.byID[entry.ID] = entry

	dial := func(Credentials) (Session, error) {
		return nil, errors.New("connection refused")
	}

	svc := NewService(logs, vms, quietDriver(), dial, nil, slog.Default())
	if err := svc.ExecuteReboot(context.Background(), entry.ID); err == nil {
		t.Fatalf("expected dial error")
	}
	if entry.Status != models.ConsoleLogStatusFailure {
		t.Errorf("status: got %q, want Failure", entry.Status)
	}
	if entry.Error != "connection refused" {
		t.Errorf("error message: got %q", entry.Error)
	}
}

func TestExecuteRebootDriverFailureKeepsTranscript(t *testing.T) {
	vm := testVM()
	logs := newMockLogs()
	vms := &mockVMs{byID: map[uuid.UUID]*models.VirtualMachine{vm.ID: vm}}
	entry := &models.SerialConsoleLog{ID: uuid.New(), VirtualMachineID: vm.ID}
	logs.byID[entry.ID] = entry

	// Machine never comes back: final login expect times out.
	sess := &scriptSession{script: []error{nil, nil, nil, ErrExpectTimeout}}
	dial := func(Credentials) (Session, error) { return sess, nil }

	svc := NewService(logs, vms, quietDriver(), dial, nil, slog.Default())
	if err := svc.ExecuteReboot(context.Background(), entry.ID); err == nil {
		t.Fatalf("expected reboot failure")
	}
	if entry.Status != models.ConsoleLogStatusFailure {
		t.Errorf("status: got %q, want Failure", entry.Status)
	}
	if entry.Output != "console transcript" {
		t.Errorf("failed runs must still keep the transcript, got %q", entry.Output)
	}
}
