package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

type Account struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	CreditBalance float64   `json:"credit_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
