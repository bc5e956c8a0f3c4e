package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostbay/backend/internal/models"
)

type ConsoleLogRepo struct {
	pool *pgxpool.Pool
}

func NewConsoleLogRepo(pool *pgxpool.Pool) *ConsoleLogRepo {
	return &ConsoleLogRepo{pool: pool}
}

func (r *ConsoleLogRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateTx inserts the log inside the caller's transaction, so the reboot
// job enqueued alongside it only exists if the log does.
func (r *ConsoleLogRepo) CreateTx(ctx context.Context, tx pgx.Tx, l *models.SerialConsoleLog) error {
	return tx.QueryRow(ctx, `
		INSERT INTO serial_console_logs (id, virtual_machine_id, status, output, error)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, l.ID, l.VirtualMachineID, l.Status, l.Output, l.Error).Scan(&l.CreatedAt, &l.UpdatedAt)
}

func (r *ConsoleLogRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SerialConsoleLog, error) {
	var l models.SerialConsoleLog
	err := r.pool.QueryRow(ctx, `
		SELECT id, virtual_machine_id, status, output, error, created_at, updated_at
		FROM serial_console_logs WHERE id = $1
	`, id).Scan(&l.ID, &l.VirtualMachineID, &l.Status, &l.Output, &l.Error, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *ConsoleLogRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE serial_console_logs SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	return err
}

// Finish records the terminal status alongside the captured session output.
func (r *ConsoleLogRepo) Finish(ctx context.Context, id uuid.UUID, status, output, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE serial_console_logs SET status = $2, output = $3, error = $4, updated_at = now() WHERE id = $1
	`, id, status, output, errMsg)
	return err
}
