package models

import (
	"time"

	"github.com/google/uuid"
)

// Balance transaction sources and allocation types.
const (
	BalanceSourcePrepaidCredits = "Prepaid Credits"
	BalanceSourceApplied        = "Applied From Balance"

	AllocationPartnershipFee = "Partnership Fee"
)

// BalanceTransaction is a credit allocation on an account's ledger.
// Amounts are in currency units, positive for credits.
type BalanceTransaction struct {
	ID           uuid.UUID `json:"id"`
	AccountID    uuid.UUID `json:"account_id"`
	Amount       float64   `json:"amount"`
	Source       string    `json:"source"`
	Type         string    `json:"type,omitempty"`
	Remark       string    `json:"remark,omitempty"`
	BalanceAfter float64   `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}
