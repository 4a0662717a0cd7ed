package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"guardian/internal/audit"
	"guardian/internal/invoice"
)

// Report styles. Kept minimal: a boxed header per invoice and semantic
// colors for the ruling.
var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BC34A")).
			Border(lipgloss.DoubleBorder()).
			Padding(0, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2196F3"))

	verdictStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e53935"))

	skipStyle = lipgloss.NewStyle().
			Faint(true)
)

// reportPace separates consecutive reports so the output reads as a
// stream rather than a dump.
const reportPace = 500 * time.Millisecond

var auditNarrate bool

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit every transaction and print a report",
	Long: `Runs the audit pipeline over every row of the transaction CSV and
prints a human-readable ruling per invoice. Rows with neither an invoice
ID nor a vendor are skipped as unidentifiable.

With --narrate, streams the same step-by-step narrative the dashboard
shows instead of the compact report.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&auditNarrate, "narrate", false, "stream the full audit narrative per invoice")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	kb, err := openKnowledgeBase(cfg)
	if err != nil {
		return err
	}
	defer kb.Close()

	ctx, cancel := signalContext()
	defer cancel()

	indexer := newIndexer(cfg, kb)
	if count, err := kb.Count(); err == nil && count == 0 {
		if _, err := indexer.Reindex(ctx); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("Contract indexing failed: %v", err)))
		}
	}

	auditor, err := buildAuditor(cfg, kb)
	if err != nil {
		return err
	}

	records := transactionSource(cfg).Load()
	if len(records) == 0 {
		fmt.Println(errorStyle.Render("No transaction data found."))
		return nil
	}

	fmt.Println(bannerStyle.Render("COMMERCIAL GUARDIAN - INVOICE AUDIT"))
	fmt.Println()

	if auditNarrate {
		sink := audit.NewConsoleSink(os.Stdout)
		for _, raw := range records {
			if _, err := auditor.Run(ctx, raw, sink); err != nil {
				return err
			}
			fmt.Println()
		}
		fmt.Println(bannerStyle.Render("AUDIT COMPLETE"))
		return nil
	}

	for i, raw := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i > 0 {
			time.Sleep(reportPace)
		}

		inv := invoice.Normalize(raw, invoice.ReportDefaults)
		if inv.Unidentified() {
			fmt.Println(skipStyle.Render(fmt.Sprintf("Skipping row %d: no invoice ID or vendor.", i+1)))
			continue
		}

		printInvoiceHeader(inv)
		fmt.Println(labelStyle.Render("  Consulting contract terms..."))

		fragments, err := auditor.Retriever.Retrieve(ctx, inv)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("  Retrieval failed: %v", err)))
		}

		prompt := auditor.Composer.ComposeReport(inv, fragments)
		output, err := auditor.Oracle.Invoke(ctx, prompt)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("  Oracle unavailable: %v", err)))
			fmt.Println(verdictStyle.Render("[STATUS] FAIL\n[REASON] Oracle Error\n[ACTION] DISPUTE"))
			fmt.Println()
			continue
		}

		fmt.Println(verdictStyle.Render(audit.CleanDisplay(output)))
		fmt.Println()
	}

	fmt.Println(bannerStyle.Render("AUDIT COMPLETE"))
	return nil
}

func printInvoiceHeader(inv invoice.Invoice) {
	header := fmt.Sprintf("INVOICE %s\nVendor: %s\nDate:   %s\nItems:  %s\nAmount: %s",
		inv.ID, inv.Vendor, inv.Date, inv.LineItems, inv.Amount)
	fmt.Println(headerStyle.Render(header))
}
