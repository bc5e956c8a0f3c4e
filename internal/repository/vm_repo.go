package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hostbay/backend/internal/models"
)

type VirtualMachineRepo struct {
	pool *pgxpool.Pool
}

func NewVirtualMachineRepo(pool *pgxpool.Pool) *VirtualMachineRepo {
	return &VirtualMachineRepo{pool: pool}
}

func (r *VirtualMachineRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.VirtualMachine, error) {
	var vm models.VirtualMachine
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, console_user, console_host, console_port, console_private_key, created_at, updated_at
		FROM virtual_machines WHERE id = $1
	`, id).Scan(&vm.ID, &vm.Name, &vm.ConsoleUser, &vm.ConsoleHost, &vm.ConsolePort, &vm.ConsolePrivateKey, &vm.CreatedAt, &vm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &vm, nil
}

func (r *VirtualMachineRepo) Create(ctx context.Context, vm *models.VirtualMachine) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO virtual_machines (id, name, console_user, console_host, console_port, console_private_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, vm.ID, vm.Name, vm.ConsoleUser, vm.ConsoleHost, vm.ConsolePort, vm.ConsolePrivateKey).Scan(&vm.CreatedAt, &vm.UpdatedAt)
}
