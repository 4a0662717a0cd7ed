package audit

import (
	"bytes"
	"context"
	"testing"

	"guardian/internal/invoice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)

	require.NoError(t, sink.EmitInvoice(context.Background(), invoice.Invoice{ID: "INV-9", Vendor: "Acme"}))
	require.NoError(t, sink.Emit(context.Background(), Event{Message: "Result: PASS", Severity: SeverityInfo}))
	require.NoError(t, sink.Emit(context.Background(), Event{Message: "DISPUTING: Overbilled", Severity: SeverityError}))

	out := buf.String()
	assert.Contains(t, out, "INVOICE INV-9")
	assert.Contains(t, out, "[info] Result: PASS")
	assert.Contains(t, out, "[error] DISPUTING: Overbilled")
}
