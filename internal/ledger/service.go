package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hostbay/backend/internal/models"
)

type Service interface {
	// AllocateCredit credits amount (currency units) to the account inside
	// the caller's transaction and returns the ledger entry. allocType is
	// empty for plain prepaid credits.
	AllocateCredit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount float64, source, remark, allocType string) (*models.BalanceTransaction, error)
	Balance(ctx context.Context, accountID uuid.UUID) (float64, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) AllocateCredit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount float64, source, remark, allocType string) (*models.BalanceTransaction, error) {
	t := &models.BalanceTransaction{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    amount,
		Source:    source,
		Type:      allocType,
		Remark:    remark,
	}
	if err := s.repo.AllocateCredit(ctx, tx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) Balance(ctx context.Context, accountID uuid.UUID) (float64, error) {
	return s.repo.Balance(ctx, accountID)
}
