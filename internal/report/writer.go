// Package report writes full-refresh reports into the spreadsheet.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nospicy/possync/internal/inventory"
	"github.com/nospicy/possync/internal/sales"
	pkgerrors "github.com/nospicy/possync/pkg/errors"
	"github.com/nospicy/possync/pkg/logger"
	"github.com/nospicy/possync/pkg/loyverse"
)

// NumberPattern is applied to every numeric column.
const NumberPattern = "#,##0.00"

// Store is the tabular backend. pkg/sheets.Client implements it. WriteRows
// overwrites the rows below the header in place; it must not insert grid rows.
type Store interface {
	EnsureSheet(ctx context.Context, title string) (sheetID int64, created bool, err error)
	Clear(ctx context.Context, title string) error
	WriteHeader(ctx context.Context, title string, header []string) error
	WriteRows(ctx context.Context, title string, rows [][]any) error
	FormatNumberColumns(ctx context.Context, sheetID int64, columns []int, rows int, pattern string) error
}

// Report is one sheet worth of data.
type Report struct {
	Sheet          string
	Header         []string
	Rows           [][]any
	NumericColumns []int
}

type WriterParams struct {
	Store      Store
	SalesSheet string
	StockSheet string
	Location   *time.Location
	Logger     *logger.Logger
}

type Writer struct {
	store      Store
	salesSheet string
	stockSheet string
	loc        *time.Location
	logg       *logger.Logger
}

func NewWriter(params WriterParams) (*Writer, error) {
	if params.Store == nil {
		return nil, errors.New("report store required")
	}
	if params.SalesSheet == "" || params.StockSheet == "" {
		return nil, errors.New("sales and stock sheet titles are required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Writer{
		store:      params.Store,
		salesSheet: params.SalesSheet,
		stockSheet: params.StockSheet,
		loc:        loc,
		logg:       logg,
	}, nil
}

// WriteReport replaces the content of r.Sheet with the header and rows, then
// formats the numeric columns. An empty report leaves just the header.
func (w *Writer) WriteReport(ctx context.Context, r Report) error {
	sheetID, created, err := w.store.EnsureSheet(ctx, r.Sheet)
	if err != nil {
		return sinkError(err, "locate sheet "+r.Sheet)
	}
	ctx = w.logg.WithField(ctx, "sheet", r.Sheet)
	if created {
		w.logg.Info(ctx, "sheet created")
	}

	if err := w.store.Clear(ctx, r.Sheet); err != nil {
		return sinkError(err, "clear sheet "+r.Sheet)
	}
	if err := w.store.WriteHeader(ctx, r.Sheet, r.Header); err != nil {
		return sinkError(err, "write header of "+r.Sheet)
	}
	if len(r.Rows) == 0 {
		w.logg.Info(ctx, "no rows to write")
		return nil
	}
	if err := w.store.WriteRows(ctx, r.Sheet, r.Rows); err != nil {
		return sinkError(err, "write rows to "+r.Sheet)
	}
	if len(r.NumericColumns) > 0 {
		if err := w.store.FormatNumberColumns(ctx, sheetID, r.NumericColumns, len(r.Rows), NumberPattern); err != nil {
			return sinkError(err, "format "+r.Sheet)
		}
	}

	w.logg.Info(w.logg.WithField(ctx, "rows", len(r.Rows)), "report written")
	return nil
}

// WriteSales writes one row per line item to the sales sheet and returns the row count.
func (w *Writer) WriteSales(ctx context.Context, receipts []loyverse.Receipt) (int, error) {
	rows := sales.Rows(receipts, w.loc)
	err := w.WriteReport(ctx, Report{
		Sheet:          w.salesSheet,
		Header:         sales.Header,
		Rows:           rows,
		NumericColumns: sales.NumericColumns,
	})
	return len(rows), err
}

// WriteInventory writes one row per record to the stock sheet and returns the row count.
func (w *Writer) WriteInventory(ctx context.Context, records []inventory.Record) (int, error) {
	rows := inventory.Rows(records, w.loc)
	err := w.WriteReport(ctx, Report{
		Sheet:          w.stockSheet,
		Header:         inventory.Header,
		Rows:           rows,
		NumericColumns: inventory.NumericColumns,
	})
	return len(rows), err
}

// sinkError keeps typed errors from the store and marks the rest as sink failures.
func sinkError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return pkgerrors.Wrap(pkgerrors.CodeSinkWrite, err, msg)
}
