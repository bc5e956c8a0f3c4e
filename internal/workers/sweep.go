package workers

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// DefaultSweepHours is the pending-order age threshold for the periodic sweep.
const DefaultSweepHours = 12

type PendingSweepArgs struct {
	Hours int `json:"hours"`
}

func (PendingSweepArgs) Kind() string { return "pending_order_sweep" }

// SweepService defines the contract the worker needs to reconcile pending
// orders. Returns the number of webhook logs written; per-order failures are
// collected into the returned error without aborting the sweep.
type SweepService interface {
	SweepPendingOrders(ctx context.Context, hours int) (int, error)
}

type SweepWorker struct {
	river.WorkerDefaults[PendingSweepArgs]
	svc SweepService
	log *slog.Logger
}

func NewSweepWorker(svc SweepService, log *slog.Logger) *SweepWorker {
	if log == nil {
		log = slog.Default()
	}
	return &SweepWorker{svc: svc, log: log}
}

func (w *SweepWorker) Work(ctx context.Context, job *river.Job[PendingSweepArgs]) error {
	hours := job.Args.Hours
	if hours <= 0 {
		hours = DefaultSweepHours
	}
	inserted, err := w.svc.SweepPendingOrders(ctx, hours)
	if err != nil {
		// The sweep itself is the retry mechanism for missed captures, so
		// collected per-order failures are logged rather than re-queued.
		w.log.Error("pending order sweep finished with errors", "inserted", inserted, "error", err)
		return nil
	}
	w.log.Info("pending order sweep finished", "inserted", inserted)
	return nil
}
