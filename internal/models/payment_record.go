package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment record status enums. The transition to Captured is one-way and
// processed at most once (enforced by a conditional UPDATE in the repo).
const (
	PaymentStatusPending  = "Pending"
	PaymentStatusCaptured = "Captured"
	PaymentStatusFailed   = "Failed"
)

// Payment record types.
const (
	PaymentTypePrepaidCredits = "Prepaid Credits"
	PaymentTypePartnershipFee = "Partnership Fee"
)

type PaymentRecord struct {
	ID            uuid.UUID `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	OrderID       string    `json:"order_id"`
	PaymentID     string    `json:"payment_id,omitempty"`
	Signature     string    `json:"signature,omitempty"`
	Status        string    `json:"status"`
	Type          string    `json:"type"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
