// Package numbering allocates year-scoped document numbers and catalog
// identifiers.
package numbering

import (
	"context"
	"fmt"
	"time"
)

// DocType is the document prefix used in generated numbers.
type DocType string

const (
	DocProformaInvoice DocType = "PI"
	DocPurchaseOrder   DocType = "PO"
	DocInvoice         DocType = "INV"
	DocProduct         DocType = "PRD"

	// DocSKU and DocBarcode feed counters that never reset.
	DocSKU     DocType = "SKU"
	DocBarcode DocType = "EAN"
)

// Sequencer hands out strictly increasing sequence values per (type, year).
// Implementations must be safe under concurrent callers.
type Sequencer interface {
	Next(ctx context.Context, docType DocType, year int) (int64, error)
}

// Generator formats sequence values into document numbers.
type Generator struct {
	seq Sequencer
	now func() time.Time
}

// NewGenerator constructs a Generator backed by seq.
func NewGenerator(seq Sequencer) *Generator {
	return &Generator{seq: seq, now: time.Now}
}

// WithClock overrides the clock, used by tests that pin the year.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	if now != nil {
		g.now = now
	}
	return g
}

// Next allocates the next number for docType in the current year.
func (g *Generator) Next(ctx context.Context, docType DocType) (string, error) {
	year := g.now().Year()
	seq, err := g.seq.Next(ctx, docType, year)
	if err != nil {
		return "", fmt.Errorf("numbering: next %s: %w", docType, err)
	}
	return Format(docType, year, seq), nil
}

// Counter allocates from a sequence that is not scoped to a year, for
// identifiers that must stay unique forever.
func (g *Generator) Counter(ctx context.Context, docType DocType) (int64, error) {
	seq, err := g.seq.Next(ctx, docType, 0)
	if err != nil {
		return 0, fmt.Errorf("numbering: counter %s: %w", docType, err)
	}
	return seq, nil
}

// Format renders {TYPE}-{year}-{seq:05d}. Sequences past 99999 keep growing in width.
func Format(docType DocType, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", docType, year, seq)
}
