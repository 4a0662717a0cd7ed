package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"guardian/internal/invoice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubOracle returns a canned completion or error.
type stubOracle struct {
	output string
	err    error
	prompt string
	calls  int
}

func (s *stubOracle) Invoke(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.output, nil
}

func (s *stubOracle) Name() string { return "stub" }

// stubStore returns canned fragments or an error.
type stubStore struct {
	fragments []string
	err       error
	query     string
}

func (s *stubStore) SimilaritySearch(_ context.Context, query string, k int) ([]string, error) {
	s.query = query
	if s.err != nil {
		return nil, s.err
	}
	if len(s.fragments) > k {
		return s.fragments[:k], nil
	}
	return s.fragments, nil
}

// recordingSink captures every event and the invoice payload.
type recordingSink struct {
	events   []Event
	invoices []invoice.Invoice
	failAt   int // 1-based event index to fail on; 0 disables
}

func (r *recordingSink) Emit(_ context.Context, ev Event) error {
	if r.failAt > 0 && len(r.events)+1 >= r.failAt {
		return errors.New("observer gone")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) EmitInvoice(_ context.Context, inv invoice.Invoice) error {
	r.invoices = append(r.invoices, inv)
	return nil
}

func (r *recordingSink) messages() []string {
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Message
	}
	return out
}

func newTestAuditor(t *testing.T, o *stubOracle, store SimilaritySearcher) *Auditor {
	t.Helper()
	c, err := NewComposer(DefaultTemplates())
	require.NoError(t, err)
	return NewAuditor(o, NewRetriever(store, 2), c).WithPace(0)
}

func rawRecord() map[string]any {
	return map[string]any{
		"invoice_id":   "INV-1",
		"vendor":       "Acme",
		"total_amount": "500",
		"line_items":   "Widgets",
		"date":         "2025-01-15",
	}
}

func TestAuditorRun_ApprovePath(t *testing.T) {
	o := &stubOracle{output: `{"status": "PASS", "reason": "Within contract", "action": "APPROVE"}`}
	store := &stubStore{fragments: []string{"Acme sells widgets at 500.", "Net 30 terms."}}
	sink := &recordingSink{}

	v, err := newTestAuditor(t, o, store).Run(context.Background(), rawRecord(), sink)
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, v.Action)

	require.Len(t, sink.invoices, 1)
	assert.Equal(t, "INV-1", sink.invoices[0].ID)

	assert.Equal(t, []string{
		"Ingesting Invoice INV-1...",
		"Fetching Contracts for Acme...",
		"Found 2 contract clauses.",
		"AI Auditor Analyzing...",
		"Result: PASS",
		"Approving: Within contract",
		"Audit Cycle Complete.",
	}, sink.messages())

	stages := []string{StageIngest, StageRetrieve, StageRetrieve, StageAnalyze, StageAnalyze, StageApprove, StageDone}
	for i, ev := range sink.events {
		assert.Equal(t, stages[i], ev.Stage, "event %d stage", i)
	}
	assert.Equal(t, SeveritySuccess, sink.events[5].Severity)

	assert.Equal(t, "Acme pricing Widgets", store.query)
	assert.Contains(t, o.prompt, "Acme sells widgets at 500.")
}

func TestAuditorRun_DisputePath(t *testing.T) {
	o := &stubOracle{output: "```json\n{\"status\": \"FAIL\", \"reason\": \"No contract on file\", \"action\": \"DISPUTE\"}\n```"}
	sink := &recordingSink{}

	v, err := newTestAuditor(t, o, &stubStore{}).Run(context.Background(), rawRecord(), sink)
	require.NoError(t, err)
	assert.Equal(t, ActionDispute, v.Action)

	msgs := sink.messages()
	assert.Contains(t, msgs, "Found 0 contract clauses.")
	assert.Contains(t, msgs, "DISPUTING: No contract on file")
	assert.Contains(t, o.prompt, "No contract found.")

	last := sink.events[len(sink.events)-1]
	assert.Equal(t, "Audit Cycle Complete.", last.Message)
}

func TestAuditorRun_MissingActionDisputes(t *testing.T) {
	// A verdict without an explicit APPROVE must never clear the invoice.
	o := &stubOracle{output: `{"status": "PASS", "reason": "Looks fine"}`}
	sink := &recordingSink{}

	v, err := newTestAuditor(t, o, &stubStore{}).Run(context.Background(), rawRecord(), sink)
	require.NoError(t, err)
	assert.NotEqual(t, ActionApprove, v.Action)
	assert.Contains(t, sink.messages(), "DISPUTING: Looks fine")
}

func TestAuditorRun_OracleFailure(t *testing.T) {
	o := &stubOracle{err: errors.New("connection refused")}
	sink := &recordingSink{}

	v, err := newTestAuditor(t, o, &stubStore{}).Run(context.Background(), rawRecord(), sink)
	require.NoError(t, err, "oracle failure resolves inside the pipeline")
	assert.Equal(t, Verdict{Status: StatusFail, Reason: ReasonOracleError, Action: ActionDispute}, v)
	assert.Contains(t, sink.messages(), "DISPUTING: Oracle Error")
	assert.Contains(t, sink.messages(), "Audit Cycle Complete.")
}

func TestAuditorRun_GarbledOutput(t *testing.T) {
	o := &stubOracle{output: "I am unable to comply."}
	sink := &recordingSink{}

	v, err := newTestAuditor(t, o, &stubStore{}).Run(context.Background(), rawRecord(), sink)
	require.NoError(t, err)
	assert.Equal(t, ReasonOutputError, v.Reason)
	assert.Contains(t, sink.messages(), "Result: FAIL")
	assert.Contains(t, sink.messages(), "DISPUTING: AI Output Error")
}

func TestAuditorRun_RetrievalFailure(t *testing.T) {
	o := &stubOracle{output: `{"status": "FAIL", "reason": "No context", "action": "DISPUTE"}`}
	store := &stubStore{err: errors.New("db locked")}
	sink := &recordingSink{}

	_, err := newTestAuditor(t, o, store).Run(context.Background(), rawRecord(), sink)
	require.NoError(t, err)

	var sawRAGError bool
	for _, ev := range sink.events {
		if strings.HasPrefix(ev.Message, "RAG Error:") {
			sawRAGError = true
			assert.Equal(t, SeverityError, ev.Severity)
		}
	}
	assert.True(t, sawRAGError)
	assert.Contains(t, o.prompt, "No contract found.", "audit continues with empty context")
	assert.Equal(t, 1, o.calls)
}

func TestAuditorRun_NilStore(t *testing.T) {
	o := &stubOracle{output: `{"status": "PASS", "reason": "ok", "action": "APPROVE"}`}
	sink := &recordingSink{}

	_, err := newTestAuditor(t, o, nil).Run(context.Background(), rawRecord(), sink)
	require.NoError(t, err)
	assert.Contains(t, sink.messages(), "Found 0 contract clauses.")
}

func TestAuditorRun_SinkFailureAborts(t *testing.T) {
	o := &stubOracle{output: `{"status": "PASS", "reason": "ok", "action": "APPROVE"}`}
	sink := &recordingSink{failAt: 3}

	_, err := newTestAuditor(t, o, &stubStore{}).Run(context.Background(), rawRecord(), sink)
	assert.Error(t, err)
	assert.Less(t, len(sink.events), 7)
}

func TestAuditorRun_CancelledContext(t *testing.T) {
	o := &stubOracle{output: `{"status": "PASS", "reason": "ok", "action": "APPROVE"}`}
	c, err := NewComposer(DefaultTemplates())
	require.NoError(t, err)
	a := NewAuditor(o, NewRetriever(&stubStore{}, 2), c) // default pace, so pause blocks

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = a.Run(ctx, rawRecord(), &recordingSink{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuditorRun_DefaultedRecord(t *testing.T) {
	o := &stubOracle{output: `{"status": "FAIL", "reason": "Missing data", "action": "DISPUTE"}`}
	sink := &recordingSink{}

	_, err := newTestAuditor(t, o, &stubStore{}).Run(context.Background(), map[string]any{}, sink)
	require.NoError(t, err)

	assert.Contains(t, sink.messages(), "Ingesting Invoice UNKNOWN...")
	assert.Contains(t, sink.messages(), "Fetching Contracts for Unknown...")
	assert.Contains(t, o.prompt, fmt.Sprintf("Items: %s", "General Services"))
}
