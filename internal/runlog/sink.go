package runlog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sink persists run log entries.
type Sink interface {
	Name() string
	Append(ctx context.Context, e Entry) error
}

// SheetStore is the part of the spreadsheet client the log sheet needs.
type SheetStore interface {
	EnsureSheet(ctx context.Context, title string) (sheetID int64, created bool, err error)
	ReadRange(ctx context.Context, title, a1 string) ([][]any, error)
	WriteHeader(ctx context.Context, title string, header []string) error
	AppendRows(ctx context.Context, title string, rows [][]any) error
}

// SheetSink appends entries to a log sheet, creating it with its header on demand.
type SheetSink struct {
	store SheetStore
	title string
	loc   *time.Location
}

func NewSheetSink(store SheetStore, title string, loc *time.Location) (*SheetSink, error) {
	if store == nil {
		return nil, errors.New("log sheet store required")
	}
	if title == "" {
		return nil, errors.New("log sheet title required")
	}
	return &SheetSink{store: store, title: title, loc: loc}, nil
}

func (s *SheetSink) Name() string {
	return "sheet"
}

func (s *SheetSink) Append(ctx context.Context, e Entry) error {
	_, created, err := s.store.EnsureSheet(ctx, s.title)
	if err != nil {
		return fmt.Errorf("locate log sheet: %w", err)
	}

	needsHeader := created
	if !created {
		first, err := s.store.ReadRange(ctx, s.title, "A1:A1")
		if err != nil {
			return fmt.Errorf("read log header: %w", err)
		}
		needsHeader = len(first) == 0 || len(first[0]) == 0 || first[0][0] == ""
	}
	if needsHeader {
		if err := s.store.WriteHeader(ctx, s.title, Header); err != nil {
			return fmt.Errorf("write log header: %w", err)
		}
	}

	if err := s.store.AppendRows(ctx, s.title, [][]any{e.Row(s.loc)}); err != nil {
		return fmt.Errorf("append log row: %w", err)
	}
	return nil
}

// RunLogInserter is implemented by pkg/bigquery.Client.
type RunLogInserter interface {
	InsertRunLog(ctx context.Context, rows ...any) error
}

// BigQuerySink mirrors entries into a BigQuery table.
type BigQuerySink struct {
	inserter RunLogInserter
}

func NewBigQuerySink(inserter RunLogInserter) (*BigQuerySink, error) {
	if inserter == nil {
		return nil, errors.New("bigquery inserter required")
	}
	return &BigQuerySink{inserter: inserter}, nil
}

func (s *BigQuerySink) Name() string {
	return "bigquery"
}

func (s *BigQuerySink) Append(ctx context.Context, e Entry) error {
	if err := s.inserter.InsertRunLog(ctx, e); err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}
