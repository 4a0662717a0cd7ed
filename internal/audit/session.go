package audit

import (
	"context"
	"errors"

	"guardian/internal/invoice"
	"guardian/internal/logging"

	"github.com/google/uuid"
)

// ErrNoData signals that the transaction source produced nothing to audit.
var ErrNoData = errors.New("no transaction data found")

// Session cycles through a transaction source one audit at a time. Each
// observer (one WebSocket connection, one CLI run) owns its own session, so
// its cursor never interferes with another observer's position.
type Session struct {
	ID      string
	Source  invoice.Source
	Auditor *Auditor

	cursor int
}

// NewSession creates a session over a transaction source.
func NewSession(src invoice.Source, auditor *Auditor) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Source:  src,
		Auditor: auditor,
	}
}

// RunNext audits the next transaction in round-robin order, reloading the
// source each time so edits to the underlying data show up on the following
// trigger. The cursor advances once per call and wraps past the end.
func (s *Session) RunNext(ctx context.Context, sink Sink) (Verdict, error) {
	records := s.Source.Load()
	if len(records) == 0 {
		logging.Audit("[session %s] transaction source is empty", s.ID)
		if err := sink.Emit(ctx, Event{Message: "No transaction data found.", Severity: SeverityError}); err != nil {
			return Verdict{}, err
		}
		return Verdict{}, ErrNoData
	}

	target := records[s.cursor%len(records)]
	s.cursor++

	return s.Auditor.Run(ctx, target, sink)
}
