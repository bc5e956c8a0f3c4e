package workers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

type FinalizeInvoicesArgs struct {
	AccountID uuid.UUID `json:"account_id"`
}

func (FinalizeInvoicesArgs) Kind() string { return "finalize_unpaid_invoices" }

// FinalizeService settles an account's unpaid invoices against its credit
// balance.
type FinalizeService interface {
	FinalizeUnpaidInvoices(ctx context.Context, accountID uuid.UUID) error
}

type FinalizeWorker struct {
	river.WorkerDefaults[FinalizeInvoicesArgs]
	svc FinalizeService
}

func NewFinalizeWorker(svc FinalizeService) *FinalizeWorker {
	return &FinalizeWorker{svc: svc}
}

func (w *FinalizeWorker) Work(ctx context.Context, job *river.Job[FinalizeInvoicesArgs]) error {
	if err := w.svc.FinalizeUnpaidInvoices(ctx, job.Args.AccountID); err != nil {
		return fmt.Errorf("finalize invoices for account %s: %w", job.Args.AccountID, err)
	}
	return nil
}
