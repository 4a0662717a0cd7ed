// Package audit implements the audit orchestration engine: normalization,
// contract retrieval, prompt composition, verdict parsing, and the routing
// state machine that narrates each audit to a progress sink.
package audit

import (
	"context"

	"guardian/internal/invoice"
)

// Severity classifies a progress event for the observer.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Stage identifiers match the nodes of the pipeline diagram rendered by the
// demo UI. Empty means "no specific stage".
const (
	StageIngest   = "1"
	StageRetrieve = "2"
	StageAnalyze  = "3"
	StageApprove  = "4"
	StageDispute  = "5"
	StageDone     = "6"
)

// Event is one line of the audit's human-observable narrative. Events are
// ordered and append-only; the core emits them and never reads them back.
type Event struct {
	Message  string   `json:"log"`
	Severity Severity `json:"type"`
	Stage    string   `json:"active_node,omitempty"`
	AuditID  string   `json:"audit_id,omitempty"`
}

// Sink receives progress events in emission order. Emit returning an error
// means the observer is gone; the orchestrator aborts the run.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event) error

// Emit implements Sink.
func (f SinkFunc) Emit(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// InvoiceSink is an optional sink capability: transports that render the
// invoice under audit receive it before the narrative starts.
type InvoiceSink interface {
	EmitInvoice(ctx context.Context, inv invoice.Invoice) error
}
