// Package sales pulls receipts for a date window and shapes them into report rows.
package sales

import (
	"context"
	"errors"
	"time"

	"github.com/nospicy/possync/internal/reference"
	pkgerrors "github.com/nospicy/possync/pkg/errors"
	"github.com/nospicy/possync/pkg/logger"
	"github.com/nospicy/possync/pkg/loyverse"
	"github.com/shopspring/decimal"
)

// ReceiptSource lists receipts created inside a window.
type ReceiptSource interface {
	Receipts(ctx context.Context, from, to time.Time) ([]loyverse.Receipt, error)
}

// CategoryJoiner returns the item id to category name lookup.
type CategoryJoiner interface {
	ItemCategories(ctx context.Context) (map[string]string, error)
}

type Extractor struct {
	joiner CategoryJoiner
	src    ReceiptSource
	logg   *logger.Logger
}

func NewExtractor(joiner CategoryJoiner, src ReceiptSource, logg *logger.Logger) (*Extractor, error) {
	if joiner == nil {
		return nil, errors.New("category joiner required")
	}
	if src == nil {
		return nil, errors.New("receipt source required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Extractor{joiner: joiner, src: src, logg: logg}, nil
}

// Extract loads the category lookup, then every receipt in window, and returns
// enriched copies. Authorization failures are returned as they are; anything
// else is wrapped as a retryable extraction failure.
func (e *Extractor) Extract(ctx context.Context, window DateRange) ([]loyverse.Receipt, error) {
	categories, err := e.joiner.ItemCategories(ctx)
	if err != nil {
		return nil, classify(err)
	}

	ctx = e.logg.WithFields(ctx, map[string]any{
		"from": window.From.Format(time.RFC3339),
		"to":   window.To.Format(time.RFC3339),
	})
	receipts, err := e.src.Receipts(ctx, window.From, window.To)
	if err != nil {
		return nil, classify(err)
	}

	enriched := Enrich(receipts, categories)
	summary := Summarize(enriched)
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"receipts":   summary.Receipts,
		"line_items": summary.LineItems,
		"net_total":  summary.NetTotal.StringFixed(2),
	}), "sales extracted")
	return enriched, nil
}

func classify(err error) error {
	if pkgerrors.IsAuthorization(err) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sales extraction failed")
}

// Enrich returns copies of receipts whose line items carry their category
// name. The input is left untouched.
func Enrich(receipts []loyverse.Receipt, categories map[string]string) []loyverse.Receipt {
	out := make([]loyverse.Receipt, len(receipts))
	for i, r := range receipts {
		items := make([]loyverse.LineItem, len(r.LineItems))
		for j, li := range r.LineItems {
			li.Category = categoryFor(categories, li.ItemID)
			items[j] = li
		}
		r.LineItems = items
		r.Payments = append([]loyverse.Payment(nil), r.Payments...)
		out[i] = r
	}
	return out
}

func categoryFor(categories map[string]string, itemID string) string {
	if name := categories[itemID]; name != "" {
		return name
	}
	return reference.Uncategorized
}

// Summary is what a run reports about the receipts it wrote.
type Summary struct {
	Receipts  int
	LineItems int
	NetTotal  decimal.Decimal
}

func Summarize(receipts []loyverse.Receipt) Summary {
	s := Summary{Receipts: len(receipts), NetTotal: decimal.Zero}
	for _, r := range receipts {
		s.LineItems += len(r.LineItems)
		for _, li := range r.LineItems {
			s.NetTotal = s.NetTotal.Add(li.NetAmount())
		}
	}
	return s
}
