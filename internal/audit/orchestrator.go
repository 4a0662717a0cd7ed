package audit

import (
	"context"
	"fmt"
	"time"

	"guardian/internal/invoice"
	"guardian/internal/logging"
	"guardian/internal/oracle"

	"github.com/google/uuid"
)

// DefaultPace is the delay inserted after each progress event so a human
// observer can follow the narrative. Zero disables pacing entirely.
const DefaultPace = 500 * time.Millisecond

// Auditor runs the full audit pipeline for one invoice record:
// normalize, retrieve, judge, parse, route. Every failure inside the
// pipeline resolves to a disputing verdict; Run only errors when the
// observer disconnects or the context is cancelled.
type Auditor struct {
	Oracle    oracle.Oracle
	Retriever *Retriever
	Composer  *Composer
	Pace      time.Duration
}

// NewAuditor assembles an auditor with the default pace.
func NewAuditor(o oracle.Oracle, r *Retriever, c *Composer) *Auditor {
	return &Auditor{Oracle: o, Retriever: r, Composer: c, Pace: DefaultPace}
}

// WithPace overrides the inter-event delay. Zero is honored as "no delay".
func (a *Auditor) WithPace(d time.Duration) *Auditor {
	a.Pace = d
	return a
}

// Run audits a single raw transaction record, narrating progress to sink.
// The returned verdict is always routable; err is non-nil only when the run
// was aborted before completing.
func (a *Auditor) Run(ctx context.Context, raw map[string]any, sink Sink) (Verdict, error) {
	auditID := uuid.NewString()
	timer := logging.StartTimer(logging.CategoryAudit, "Run")
	defer timer.Stop()

	inv := invoice.Normalize(raw, invoice.InteractiveDefaults)
	logging.Audit("[%s] auditing invoice id=%s vendor=%s amount=%s", auditID, inv.ID, inv.Vendor, inv.Amount)

	if is, ok := sink.(InvoiceSink); ok {
		if err := is.EmitInvoice(ctx, inv); err != nil {
			return Verdict{}, err
		}
	}

	emit := func(msg string, sev Severity, stage string) error {
		if err := sink.Emit(ctx, Event{Message: msg, Severity: sev, Stage: stage, AuditID: auditID}); err != nil {
			return err
		}
		return a.pause(ctx)
	}

	if err := emit(fmt.Sprintf("Ingesting Invoice %s...", inv.ID), SeverityInfo, StageIngest); err != nil {
		return Verdict{}, err
	}

	if err := emit(fmt.Sprintf("Fetching Contracts for %s...", inv.Vendor), SeverityInfo, StageRetrieve); err != nil {
		return Verdict{}, err
	}

	fragments, retrErr := a.Retriever.Retrieve(ctx, inv)
	if retrErr != nil {
		if err := emit(fmt.Sprintf("RAG Error: %v", retrErr), SeverityError, ""); err != nil {
			return Verdict{}, err
		}
	} else {
		if err := emit(fmt.Sprintf("Found %d contract clauses.", len(fragments)), SeveritySuccess, StageRetrieve); err != nil {
			return Verdict{}, err
		}
	}

	if err := emit("AI Auditor Analyzing...", SeverityInfo, StageAnalyze); err != nil {
		return Verdict{}, err
	}

	var verdict Verdict
	prompt := a.Composer.ComposeJudgment(inv, fragments)
	output, invokeErr := a.Oracle.Invoke(ctx, prompt)
	if invokeErr != nil {
		logging.Audit("[%s] oracle invocation failed: %v", auditID, invokeErr)
		verdict = FallbackVerdict(ReasonOracleError)
	} else {
		verdict = ParseVerdict(output)
	}

	if err := emit(fmt.Sprintf("Result: %s", verdict.Status), SeverityInfo, StageAnalyze); err != nil {
		return Verdict{}, err
	}

	// Fail closed: only an explicit APPROVE clears the invoice.
	if verdict.Action == ActionApprove {
		if err := emit(fmt.Sprintf("Approving: %s", verdict.Reason), SeveritySuccess, StageApprove); err != nil {
			return Verdict{}, err
		}
	} else {
		if err := emit(fmt.Sprintf("DISPUTING: %s", verdict.Reason), SeverityError, StageDispute); err != nil {
			return Verdict{}, err
		}
	}

	if err := emit("Audit Cycle Complete.", SeverityInfo, StageDone); err != nil {
		return Verdict{}, err
	}

	logging.Audit("[%s] verdict status=%s action=%s reason=%q", auditID, verdict.Status, verdict.Action, verdict.Reason)
	return verdict, nil
}

// pause waits out the configured pace, returning early if the context is
// cancelled.
func (a *Auditor) pause(ctx context.Context) error {
	if a.Pace <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(a.Pace)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
