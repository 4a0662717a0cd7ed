package audit

import (
	"context"
	"fmt"
	"io"
	"sync"

	"guardian/internal/invoice"

	"github.com/charmbracelet/lipgloss"
)

var (
	consoleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3"))
	consoleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
	consoleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	consoleCard    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// ConsoleSink renders the audit narrative to a terminal, one styled line
// per event.
type ConsoleSink struct {
	w  io.Writer
	mu sync.Mutex
}

// NewConsoleSink creates a console sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Emit implements Sink.
func (c *ConsoleSink) Emit(_ context.Context, ev Event) error {
	style := consoleInfo
	switch ev.Severity {
	case SeveritySuccess:
		style = consoleSuccess
	case SeverityError:
		style = consoleError
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, style.Render(fmt.Sprintf("[%s] %s", ev.Severity, ev.Message)))
	return err
}

// EmitInvoice renders the invoice under audit before the narrative starts.
func (c *ConsoleSink) EmitInvoice(_ context.Context, inv invoice.Invoice) error {
	card := fmt.Sprintf("INVOICE %s\nVendor: %s\nItems:  %s\nAmount: %s",
		inv.ID, inv.Vendor, inv.LineItems, inv.Amount)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, consoleCard.Render(card))
	return err
}
