package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookLog is a deduplicated record of gateway-reported payment events.
// OrderID is the dedupe key: inserting a second entry for the same gateway
// order is a no-op.
type WebhookLog struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   string          `json:"order_id"`
	Event     string          `json:"event"`
	PaymentID string          `json:"payment_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
