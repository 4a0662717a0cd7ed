package audit

import (
	"os"
	"path/filepath"
	"testing"

	"guardian/internal/invoice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInvoice() invoice.Invoice {
	return invoice.Invoice{
		ID:        "INV-1",
		Vendor:    "Acme",
		Amount:    "500",
		LineItems: "Widgets",
		Date:      "2025-01-15",
	}
}

func TestComposeJudgment(t *testing.T) {
	c, err := NewComposer(DefaultTemplates())
	require.NoError(t, err)

	prompt := c.ComposeJudgment(testInvoice(), []string{"Clause 1: widgets cost 500.", "Clause 2: net 30."})

	assert.Contains(t, prompt, "ACT AS: Commercial Auditor.")
	assert.Contains(t, prompt, "Clause 1: widgets cost 500.\nClause 2: net 30.")
	assert.Contains(t, prompt, "ID: INV-1")
	assert.Contains(t, prompt, "Vendor: Acme")
	assert.Contains(t, prompt, "Items: Widgets")
	assert.Contains(t, prompt, "Amount: 500")
	assert.Contains(t, prompt, "RETURN JSON ONLY")
}

func TestComposeJudgment_EmptyContext(t *testing.T) {
	c, err := NewComposer(DefaultTemplates())
	require.NoError(t, err)

	for _, fragments := range [][]string{nil, {}, {"  ", ""}} {
		prompt := c.ComposeJudgment(testInvoice(), fragments)
		assert.Contains(t, prompt, "No contract found.")
	}
}

func TestComposeReport(t *testing.T) {
	c, err := NewComposer(DefaultTemplates())
	require.NoError(t, err)

	prompt := c.ComposeReport(testInvoice(), []string{"Clause 1"})

	assert.Contains(t, prompt, "[STATUS]")
	assert.Contains(t, prompt, "[REASON]")
	assert.Contains(t, prompt, "[ACTION]")
	assert.Contains(t, prompt, "Date: 2025-01-15")
}

func TestLoadTemplates_Overlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	pack := "judgment: |\n  CUSTOM {{.Invoice.ID}} over {{.Context}}\n"
	require.NoError(t, os.WriteFile(path, []byte(pack), 0644))

	ts, err := LoadTemplates(path)
	require.NoError(t, err)
	assert.Contains(t, ts.Judgment, "CUSTOM")
	assert.Equal(t, defaultReportTemplate, ts.Report, "unset field keeps the default")

	c, err := NewComposer(ts)
	require.NoError(t, err)
	prompt := c.ComposeJudgment(testInvoice(), nil)
	assert.Contains(t, prompt, "CUSTOM INV-1 over No contract found.")
}

func TestLoadTemplates_MissingFileKeepsDefaults(t *testing.T) {
	ts, err := LoadTemplates(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Equal(t, DefaultTemplates(), ts)
}
