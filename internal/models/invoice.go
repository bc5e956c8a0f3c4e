package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice status enums.
const (
	InvoiceStatusDraft  = "Draft"
	InvoiceStatusUnpaid = "Unpaid"
	InvoiceStatusPaid   = "Paid"
)

// Invoice types.
const (
	InvoiceTypePrepaidCredits  = "Prepaid Credits"
	InvoiceTypePartnershipFees = "Partnership Fees"
)

type Invoice struct {
	ID               uuid.UUID     `json:"id"`
	AccountID        uuid.UUID     `json:"account_id"`
	Type             string        `json:"type"`
	Status           string        `json:"status"`
	DueDate          time.Time     `json:"due_date"`
	Total            float64       `json:"total"`
	AmountDue        float64       `json:"amount_due"`
	GST              float64       `json:"gst"`
	AmountDueWithTax float64       `json:"amount_due_with_tax"`
	AmountPaid       float64       `json:"amount_paid"`
	GatewayOrderID   string        `json:"gateway_order_id,omitempty"`
	PaymentRecordID  *uuid.UUID    `json:"payment_record_id,omitempty"`
	PaymentMethod    string        `json:"payment_method,omitempty"`
	GatewayPaymentID string        `json:"gateway_payment_id,omitempty"`
	GatewayFee       float64       `json:"gateway_fee,omitempty"`
	Submitted        bool          `json:"submitted"`
	Items            []InvoiceItem `json:"items,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// InvoiceItem lines reference the ledger document they settle
// (document type "Balance Transaction", document id = transaction id).
type InvoiceItem struct {
	ID           uuid.UUID `json:"id"`
	InvoiceID    uuid.UUID `json:"invoice_id"`
	Description  string    `json:"description"`
	DocumentType string    `json:"document_type"`
	DocumentID   uuid.UUID `json:"document_id"`
	Quantity     int       `json:"quantity"`
	Rate         float64   `json:"rate"`
}
