package invoice

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize_Total(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want Invoice
	}{
		{
			name: "nil record",
			raw:  nil,
			want: Invoice{ID: "UNKNOWN", Vendor: "Unknown", Amount: "0", LineItems: "General Services", Date: "Unknown Date"},
		},
		{
			name: "empty record",
			raw:  map[string]any{},
			want: Invoice{ID: "UNKNOWN", Vendor: "Unknown", Amount: "0", LineItems: "General Services", Date: "Unknown Date"},
		},
		{
			name: "snake_case keys",
			raw: map[string]any{
				"invoice_id":   "INV-1",
				"vendor":       "Acme",
				"total_amount": "500",
				"line_items":   "Widgets",
				"date":         "2025-01-01",
			},
			want: Invoice{ID: "INV-1", Vendor: "Acme", Amount: "500", LineItems: "Widgets", Date: "2025-01-01"},
		},
		{
			name: "spaced keys",
			raw: map[string]any{
				"invoice id":   "INV-2",
				"vendor":       "Globex",
				"total amount": "1200.50",
				"line items":   "Shipping",
			},
			want: Invoice{ID: "INV-2", Vendor: "Globex", Amount: "1200.50", LineItems: "Shipping", Date: "Unknown Date"},
		},
		{
			name: "fallback key order amount",
			raw: map[string]any{
				"amount":       "99",
				"total_amount": "100",
			},
			want: Invoice{ID: "UNKNOWN", Vendor: "Unknown", Amount: "100", LineItems: "General Services", Date: "Unknown Date"},
		},
		{
			name: "item fallback",
			raw:  map[string]any{"item": "Consulting"},
			want: Invoice{ID: "UNKNOWN", Vendor: "Unknown", Amount: "0", LineItems: "Consulting", Date: "Unknown Date"},
		},
		{
			name: "numeric cells",
			raw: map[string]any{
				"invoice_id":   float64(42),
				"total_amount": float64(500),
			},
			want: Invoice{ID: "42", Vendor: "Unknown", Amount: "500", LineItems: "General Services", Date: "Unknown Date"},
		},
		{
			name: "zero string amount is preserved",
			raw:  map[string]any{"total_amount": "0"},
			want: Invoice{ID: "UNKNOWN", Vendor: "Unknown", Amount: "0", LineItems: "General Services", Date: "Unknown Date"},
		},
		{
			name: "empty value falls through to next candidate",
			raw: map[string]any{
				"total_amount": "  ",
				"amount":       "75",
			},
			want: Invoice{ID: "UNKNOWN", Vendor: "Unknown", Amount: "75", LineItems: "General Services", Date: "Unknown Date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, InteractiveDefaults)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_ReportDefaults(t *testing.T) {
	got := Normalize(map[string]any{}, ReportDefaults)
	want := Invoice{ID: "UNKNOWN", Vendor: "Unknown Vendor", Amount: "0", LineItems: "", Date: "Unknown Date"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestUnidentified(t *testing.T) {
	if !Normalize(nil, ReportDefaults).Unidentified() {
		t.Error("empty record should be unidentified")
	}
	if Normalize(map[string]any{"vendor": "Acme"}, ReportDefaults).Unidentified() {
		t.Error("record with a vendor is identified")
	}
	if Normalize(map[string]any{"invoice_id": "INV-9"}, InteractiveDefaults).Unidentified() {
		t.Error("record with an id is identified")
	}
}
