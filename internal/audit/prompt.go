package audit

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"guardian/internal/invoice"
	"guardian/internal/logging"

	"gopkg.in/yaml.v3"
)

// Placeholder injected when retrieval finds nothing. The oracle is told
// explicitly rather than being handed an empty block to hallucinate over.
const noContractFound = "No contract found."

// defaultJudgmentTemplate asks for a machine-parseable JSON ruling. Used by
// the interactive pipeline.
const defaultJudgmentTemplate = `ACT AS: Commercial Auditor.
TASK: Audit Invoice.

CONTRACT TERMS:
{{.Context}}

INVOICE DATA:
ID: {{.Invoice.ID}}
Vendor: {{.Invoice.Vendor}}
Items: {{.Invoice.LineItems}}
Amount: {{.Invoice.Amount}}

INSTRUCTIONS:
Compare the Invoice against the Contract.
- If the amount matches or is valid according to terms, PASS.
- If the amount is too high, wrong vendor, or missing items, FAIL.

RETURN JSON ONLY:
{ "status": "PASS" or "FAIL", "reason": "Short explanation (max 10 words)", "action": "APPROVE" or "DISPUTE" }`

// defaultReportTemplate asks for a labeled-line ruling meant for humans.
// Used by the batch CLI report.
const defaultReportTemplate = `ACT AS: Commercial Auditor.
TASK: Audit this invoice against the contract terms.

CONTRACT TERMS:
{{.Context}}

INVOICE DATA:
ID: {{.Invoice.ID}}
Vendor: {{.Invoice.Vendor}}
Date: {{.Invoice.Date}}
Items: {{.Invoice.LineItems}}
Amount: {{.Invoice.Amount}}

INSTRUCTIONS:
Compare the Invoice against the Contract.
- If the amount matches or is valid according to terms, the status is PASS.
- If the amount is too high, wrong vendor, or missing items, the status is FAIL.

Reply with exactly three lines:
[STATUS] PASS or FAIL
[REASON] Short explanation (max 10 words)
[ACTION] APPROVE or DISPUTE`

// TemplateSet holds the prompt templates for both audit surfaces. Either
// field may be overridden from a YAML pack on disk.
type TemplateSet struct {
	Judgment string `yaml:"judgment"`
	Report   string `yaml:"report"`
}

// DefaultTemplates returns the built-in template set.
func DefaultTemplates() TemplateSet {
	return TemplateSet{
		Judgment: defaultJudgmentTemplate,
		Report:   defaultReportTemplate,
	}
}

// LoadTemplates reads a YAML template pack from disk and overlays it on the
// defaults. Empty fields in the pack keep the built-in template.
func LoadTemplates(path string) (TemplateSet, error) {
	ts := DefaultTemplates()

	data, err := os.ReadFile(path)
	if err != nil {
		return ts, fmt.Errorf("failed to read template pack %s: %w", path, err)
	}

	var pack TemplateSet
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return ts, fmt.Errorf("failed to parse template pack %s: %w", path, err)
	}

	if strings.TrimSpace(pack.Judgment) != "" {
		ts.Judgment = pack.Judgment
	}
	if strings.TrimSpace(pack.Report) != "" {
		ts.Report = pack.Report
	}

	logging.Audit("Loaded prompt template pack from %s", path)
	return ts, nil
}

// Composer renders judgment prompts from an invoice and its retrieved
// contract context.
type Composer struct {
	judgment *template.Template
	report   *template.Template
}

type promptData struct {
	Invoice invoice.Invoice
	Context string
}

// NewComposer parses the template set into a ready composer.
func NewComposer(ts TemplateSet) (*Composer, error) {
	judgment, err := template.New("judgment").Parse(ts.Judgment)
	if err != nil {
		return nil, fmt.Errorf("invalid judgment template: %w", err)
	}
	report, err := template.New("report").Parse(ts.Report)
	if err != nil {
		return nil, fmt.Errorf("invalid report template: %w", err)
	}
	return &Composer{judgment: judgment, report: report}, nil
}

// ComposeJudgment renders the JSON-answer prompt for the interactive
// pipeline. Context fragments are joined verbatim in retrieval order.
func (c *Composer) ComposeJudgment(inv invoice.Invoice, fragments []string) string {
	return c.render(c.judgment, inv, fragments)
}

// ComposeReport renders the labeled-answer prompt for the batch report.
func (c *Composer) ComposeReport(inv invoice.Invoice, fragments []string) string {
	return c.render(c.report, inv, fragments)
}

func (c *Composer) render(t *template.Template, inv invoice.Invoice, fragments []string) string {
	ctxText := strings.TrimSpace(strings.Join(fragments, "\n"))
	if ctxText == "" {
		ctxText = noContractFound
	}

	var sb strings.Builder
	if err := t.Execute(&sb, promptData{Invoice: inv, Context: ctxText}); err != nil {
		// Parsed templates over a plain struct cannot fail to execute;
		// keep the pipeline alive regardless.
		logging.Audit("prompt render failed: %v", err)
		return ctxText
	}
	return sb.String()
}
