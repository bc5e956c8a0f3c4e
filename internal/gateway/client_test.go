package gateway

import "testing"

func TestGST(t *testing.T) {
	cases := []struct {
		name  string
		notes map[string]any
		want  float64
	}{
		{"absent", map[string]any{}, 0},
		{"nil notes", nil, 0},
		{"numeric", map[string]any{"gst": 18.0}, 18},
		{"string", map[string]any{"gst": "18.0"}, 18},
		{"malformed string", map[string]any{"gst": "n/a"}, 0},
		{"wrong type", map[string]any{"gst": []any{}}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Payment{Notes: tc.notes}
			if got := p.GST(); got != tc.want {
				t.Errorf("GST() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAmountUnits(t *testing.T) {
	p := &Payment{Amount: 10000}
	if got := p.AmountUnits(); got != 100 {
		t.Errorf("AmountUnits() = %v, want 100", got)
	}
}

func TestPaymentFromMap(t *testing.T) {
	m := map[string]any{
		"id":         "pay_abc",
		"order_id":   "order_xyz",
		"amount":     float64(10000),
		"currency":   "INR",
		"status":     "captured",
		"method":     "upi",
		"created_at": float64(1655212834),
		"notes":      map[string]any{"gst": "18.0"},
	}

	p, err := paymentFromMap(m)
	if err != nil {
		t.Fatalf("paymentFromMap: %v", err)
	}
	if p.ID != "pay_abc" || p.OrderID != "order_xyz" {
		t.Errorf("ids: got %q/%q", p.ID, p.OrderID)
	}
	if p.Amount != 10000 || p.CreatedAt != 1655212834 {
		t.Errorf("amount/created_at: got %d/%d", p.Amount, p.CreatedAt)
	}
	if p.GST() != 18 {
		t.Errorf("notes gst: got %v, want 18", p.GST())
	}
	if len(p.Raw) == 0 {
		t.Errorf("raw payload should be retained")
	}

	// The gateway sends notes as an empty list when none are set.
	m["notes"] = []any{}
	p, err = paymentFromMap(m)
	if err != nil {
		t.Fatalf("paymentFromMap with list notes: %v", err)
	}
	if p.GST() != 0 {
		t.Errorf("list notes should yield zero gst")
	}
}
