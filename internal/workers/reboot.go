package workers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// QueueLong serves the slow console jobs so a 5-minute reboot wait never
// starves the default queue.
const QueueLong = "long"

type RebootArgs struct {
	ConsoleLogID uuid.UUID `json:"console_log_id"`
}

func (RebootArgs) Kind() string { return "serial_console_reboot" }

func (RebootArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueLong, MaxAttempts: 1}
}

// RebootService defines the contract the worker needs to drive a reboot.
type RebootService interface {
	ExecuteReboot(ctx context.Context, consoleLogID uuid.UUID) error
}

type RebootWorker struct {
	river.WorkerDefaults[RebootArgs]
	svc RebootService
}

func NewRebootWorker(svc RebootService) *RebootWorker {
	return &RebootWorker{svc: svc}
}

func (w *RebootWorker) Work(ctx context.Context, job *river.Job[RebootArgs]) error {
	if err := w.svc.ExecuteReboot(ctx, job.Args.ConsoleLogID); err != nil {
		return fmt.Errorf("reboot console log %s: %w", job.Args.ConsoleLogID, err)
	}
	return nil
}
