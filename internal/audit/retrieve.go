package audit

import (
	"context"
	"fmt"

	"guardian/internal/invoice"
	"guardian/internal/logging"
)

// SimilaritySearcher is the retrieval capability the auditor needs from a
// knowledge base.
type SimilaritySearcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]string, error)
}

// DefaultTopK bounds how many contract fragments feed a single judgment.
const DefaultTopK = 2

// Retriever fetches the contract fragments most relevant to an invoice.
type Retriever struct {
	Store SimilaritySearcher
	TopK  int
}

// NewRetriever wires a retriever over a knowledge base. A nil store is
// legal: retrieval then always returns empty context.
func NewRetriever(store SimilaritySearcher, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{Store: store, TopK: topK}
}

// Retrieve returns the contract fragments most similar to the invoice's
// vendor and line items. An unavailable or failing store yields empty
// context and an error the caller can narrate; the audit itself continues.
func (r *Retriever) Retrieve(ctx context.Context, inv invoice.Invoice) ([]string, error) {
	if r.Store == nil {
		logging.Audit("retrieval skipped: no knowledge base attached")
		return nil, nil
	}

	query := fmt.Sprintf("%s pricing %s", inv.Vendor, inv.LineItems)
	fragments, err := r.Store.SimilaritySearch(ctx, query, r.TopK)
	if err != nil {
		logging.Audit("retrieval failed for %q: %v", query, err)
		return nil, err
	}

	logging.AuditDebug("retrieved %d fragments for %q", len(fragments), query)
	return fragments, nil
}
