package console

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hostbay/backend/internal/models"
	"github.com/hostbay/backend/internal/workers"
)

// LogStore is the serial console log storage contract.
type LogStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, l *models.SerialConsoleLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SerialConsoleLog, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Finish(ctx context.Context, id uuid.UUID, status, output, errMsg string) error
}

// VMStore resolves virtual machines and their console credentials.
type VMStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.VirtualMachine, error)
}

// InsertRebootTxFunc enqueues the reboot job within the given transaction so
// the session spawn never blocks, or races, the triggering request.
// Provided by main using river.Client.InsertTx.
type InsertRebootTxFunc func(ctx context.Context, tx pgx.Tx, args workers.RebootArgs) error

type Service interface {
	// RequestReboot records a console log and dispatches the reboot job.
	RequestReboot(ctx context.Context, vmID uuid.UUID) (*models.SerialConsoleLog, error)
	// ExecuteReboot is the background entry point: it spawns the console
	// session and drives the sysrq sequence.
	ExecuteReboot(ctx context.Context, consoleLogID uuid.UUID) error
	GetLog(ctx context.Context, id uuid.UUID) (*models.SerialConsoleLog, error)
}

type service struct {
	logs         LogStore
	vms          VMStore
	driver       *Driver
	dial         DialFunc
	insertReboot InsertRebootTxFunc
	log          *slog.Logger
}

func NewService(logs LogStore, vms VMStore, driver *Driver, dial DialFunc, insertReboot InsertRebootTxFunc, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	if driver == nil {
		driver = NewDriver()
	}
	if dial == nil {
		dial = Dial
	}
	return &service{logs: logs, vms: vms, driver: driver, dial: dial, insertReboot: insertReboot, log: log}
}

var _ Service = (*service)(nil)

func (s *service) RequestReboot(ctx context.Context, vmID uuid.UUID) (*models.SerialConsoleLog, error) {
	if _, err := s.vms.GetByID(ctx, vmID); err != nil {
		return nil, err
	}
	entry := &models.SerialConsoleLog{
		ID:               uuid.New(),
		VirtualMachineID: vmID,
		Status:           models.ConsoleLogStatusPending,
	}

	tx, err := s.logs.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	if err := s.logs.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := s.insertReboot(ctx, tx, workers.RebootArgs{ConsoleLogID: entry.ID}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) ExecuteReboot(ctx context.Context, consoleLogID uuid.UUID) error {
	entry, err := s.logs.GetByID(ctx, consoleLogID)
	if err != nil {
		return err
	}
	vm, err := s.vms.GetByID(ctx, entry.VirtualMachineID)
	if err != nil {
		return err
	}
	if err := s.logs.UpdateStatus(ctx, consoleLogID, models.ConsoleLogStatusRunning); err != nil {
		return err
	}

	sess, err := s.dial(Credentials{
		User:       vm.ConsoleUser,
		Host:       vm.ConsoleHost,
		Port:       vm.ConsolePort,
		PrivateKey: vm.ConsolePrivateKey,
	})
	if err != nil {
		s.finish(ctx, consoleLogID, models.ConsoleLogStatusFailure, "", err)
		return err
	}
	defer sess.Close()

	err = s.driver.Reboot(ctx, sess)
	if err != nil {
		s.finish(ctx, consoleLogID, models.ConsoleLogStatusFailure, sess.Transcript(), err)
		return err
	}
	s.log.Info("serial console reboot completed", "console_log", consoleLogID, "virtual_machine", vm.ID)
	return s.logs.Finish(ctx, consoleLogID, models.ConsoleLogStatusSuccess, sess.Transcript(), "")
}

func (s *service) GetLog(ctx context.Context, id uuid.UUID) (*models.SerialConsoleLog, error) {
	return s.logs.GetByID(ctx, id)
}

func (s *service) finish(ctx context.Context, id uuid.UUID, status, output string, cause error) {
	if err := s.logs.Finish(ctx, id, status, output, cause.Error()); err != nil {
		s.log.Error("failed to record console log result", "console_log", id, "error", err)
	}
}
