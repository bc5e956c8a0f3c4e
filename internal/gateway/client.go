// Package gateway wraps the Razorpay SDK behind a typed client so billing
// code works with structs instead of raw response maps.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// Payment is a gateway payment as reported by the API. Amount is in minor
// units (paise); AmountUnits converts to currency units.
type Payment struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Method    string          `json:"method"`
	Fee       int64           `json:"fee"`
	CreatedAt int64           `json:"created_at"`
	Notes     map[string]any  `json:"-"`
	Raw       json.RawMessage `json:"-"`
}

// Captured gateway payment status.
const StatusCaptured = "captured"

func (p *Payment) AmountUnits() float64 {
	return float64(p.Amount) / 100
}

// GST returns the declared tax override from the payment notes, 0 if absent.
// The gateway serializes notes as either a map or an empty list, and numeric
// note values arrive as strings.
func (p *Payment) GST() float64 {
	v, ok := p.Notes["gst"]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

type Client interface {
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	// OrderPayments returns all payments recorded against a gateway order.
	OrderPayments(ctx context.Context, orderID string) ([]*Payment, error)
	// VerifyWebhookSignature reports whether the webhook body matches the
	// gateway's HMAC signature header.
	VerifyWebhookSignature(body []byte, signature string) bool
}

type client struct {
	rzp           *razorpay.Client
	webhookSecret string
}

// New returns a Client backed by the official Razorpay SDK.
func New(keyID, keySecret, webhookSecret string) Client {
	return &client{rzp: razorpay.NewClient(keyID, keySecret), webhookSecret: webhookSecret}
}

var _ Client = (*client)(nil)

func (c *client) FetchPayment(_ context.Context, paymentID string) (*Payment, error) {
	body, err := c.rzp.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}
	return paymentFromMap(body)
}

func (c *client) OrderPayments(_ context.Context, orderID string) ([]*Payment, error) {
	body, err := c.rzp.Order.Payments(orderID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch order payments %s: %w", orderID, err)
	}
	items, _ := body["items"].([]any)
	payments := make([]*Payment, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		p, err := paymentFromMap(m)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func (c *client) VerifyWebhookSignature(body []byte, signature string) bool {
	return utils.VerifyWebhookSignature(string(body), signature, c.webhookSecret)
}

// paymentFromMap round-trips the SDK's map response through JSON into the
// typed struct, keeping the raw payload for webhook logs.
func paymentFromMap(m map[string]any) (*Payment, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var p Payment
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("malformed payment payload: %w", err)
	}
	p.Raw = raw
	if notes, ok := m["notes"].(map[string]any); ok {
		p.Notes = notes
	}
	return &p, nil
}
