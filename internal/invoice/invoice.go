// Package invoice defines the canonical transaction record under audit and
// the normalization of raw, loosely-keyed source records into it.
package invoice

import (
	"fmt"
	"strings"
)

// Invoice is a normalized transaction record. Every field is always a
// non-nil string; normalization is total and never fails.
type Invoice struct {
	ID        string `json:"invoice_id"`
	Vendor    string `json:"vendor"`
	Amount    string `json:"total_amount"`
	LineItems string `json:"line_items"`
	Date      string `json:"date"`
}

// Defaults supplies the fallback literal for each field when no candidate
// key resolves. The interactive and report surfaces historically used
// different literals, so both sets are kept.
type Defaults struct {
	ID        string
	Vendor    string
	Amount    string
	LineItems string
	Date      string
}

// InteractiveDefaults are the fallbacks used by the WebSocket audit surface.
var InteractiveDefaults = Defaults{
	ID:        "UNKNOWN",
	Vendor:    "Unknown",
	Amount:    "0",
	LineItems: "General Services",
	Date:      "Unknown Date",
}

// ReportDefaults are the fallbacks used by the CLI batch report surface.
var ReportDefaults = Defaults{
	ID:        "UNKNOWN",
	Vendor:    "Unknown Vendor",
	Amount:    "0",
	LineItems: "",
	Date:      "Unknown Date",
}

// Candidate key lists, consulted in priority order. Upstream data sources
// inconsistently use snake_case vs spaced headers; the order is load-bearing
// and must not be changed.
var (
	idKeys        = []string{"invoice_id", "invoice id"}
	vendorKeys    = []string{"vendor"}
	amountKeys    = []string{"total_amount", "total amount", "amount"}
	lineItemsKeys = []string{"line_items", "line items", "item"}
	dateKeys      = []string{"date"}
)

// Normalize maps a raw record into an Invoice. It is a pure, total function:
// any input, including nil, yields an Invoice with every field populated.
//
// A key counts as missing when it is absent from the record or when its
// stringified value is empty or whitespace-only. A literal "0" is a present
// value and is preserved (unlike the historical truthiness-based lookup,
// which conflated "0" with absence for numeric cells).
func Normalize(raw map[string]any, d Defaults) Invoice {
	return Invoice{
		ID:        resolve(raw, idKeys, d.ID),
		Vendor:    resolve(raw, vendorKeys, d.Vendor),
		Amount:    resolve(raw, amountKeys, d.Amount),
		LineItems: resolve(raw, lineItemsKeys, d.LineItems),
		Date:      resolve(raw, dateKeys, d.Date),
	}
}

// Unidentified reports whether the record carried neither an invoice id nor
// a vendor. Batch auditing skips such rows (they are CSV debris, not data).
func (inv Invoice) Unidentified() bool {
	return inv.ID == "UNKNOWN" && (inv.Vendor == "Unknown" || inv.Vendor == "Unknown Vendor")
}

// resolve walks the candidate keys in order and returns the first present,
// non-empty value, else the fallback.
func resolve(raw map[string]any, keys []string, fallback string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		s := strings.TrimSpace(valueString(v))
		if s == "" {
			continue
		}
		return s
	}
	return fallback
}

// valueString renders a raw cell value as text. CSV cells arrive as strings;
// JSON-sourced records may carry numbers or booleans.
func valueString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	case float32:
		return fmt.Sprintf("%g", t)
	case int:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	case bool:
		return fmt.Sprintf("%v", t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
