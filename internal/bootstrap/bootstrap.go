// Package bootstrap assembles the sync pipeline from configuration for the
// process entrypoints.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"google.golang.org/api/option"

	"github.com/nospicy/possync/internal/inventory"
	"github.com/nospicy/possync/internal/pipeline"
	"github.com/nospicy/possync/internal/reference"
	"github.com/nospicy/possync/internal/report"
	"github.com/nospicy/possync/internal/runlog"
	"github.com/nospicy/possync/internal/sales"
	"github.com/nospicy/possync/internal/schedule"
	"github.com/nospicy/possync/pkg/bigquery"
	"github.com/nospicy/possync/pkg/config"
	"github.com/nospicy/possync/pkg/logger"
	"github.com/nospicy/possync/pkg/loyverse"
	"github.com/nospicy/possync/pkg/metrics"
	"github.com/nospicy/possync/pkg/sheets"
)

// Options tweak how the pipeline's clients are built.
type Options struct {
	Registerer prometheus.Registerer
	// SheetsOptions are appended to the spreadsheet client options.
	SheetsOptions []option.ClientOption
	// LoyverseOptions are appended to the POS client options.
	LoyverseOptions []loyverse.Option
}

// Services is a built pipeline plus the clients it owns.
type Services struct {
	Pipeline *pipeline.Pipeline
	Gate     schedule.Window
	Sheets   *sheets.Client
	// BigQuery is nil unless the run log mirror is configured and reachable.
	BigQuery *bigquery.Client

	closers []func() error
}

// Close releases the clients owned by s and reports every failure.
func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return multierr.Combine(errs...)
}

// Build wires every pipeline component from cfg. The BigQuery mirror is
// optional: a failure to reach it is logged and the run log falls back to the
// sheet alone.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts Options) (*Services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logg == nil {
		logg = logger.Nop()
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, err
	}
	gate, err := schedule.NewWindow(loc, cfg.Schedule.StartHour, cfg.Schedule.EndHour)
	if err != nil {
		return nil, fmt.Errorf("schedule window: %w", err)
	}
	window, err := sales.PolicyFromConfig(cfg.Sync, loc)
	if err != nil {
		return nil, fmt.Errorf("sales window: %w", err)
	}
	stockPolicy, err := inventory.ParseStockPolicy(cfg.Sync.StockCollision)
	if err != nil {
		return nil, err
	}

	syncMetrics := metrics.NewSyncMetrics(opts.Registerer)

	loyOpts := []loyverse.Option{
		loyverse.WithBaseURL(cfg.Loyverse.BaseURL),
		loyverse.WithTimeout(cfg.Loyverse.RequestTimeout),
		loyverse.WithRequestObserver(syncMetrics.IncRequest),
	}
	pos, err := loyverse.NewClient(cfg.Loyverse.APIToken, append(loyOpts, opts.LoyverseOptions...)...)
	if err != nil {
		return nil, fmt.Errorf("loyverse client: %w", err)
	}

	sheetClient, err := sheets.NewClient(ctx, cfg.GCP, cfg.Sheets.SpreadsheetID, opts.SheetsOptions...)
	if err != nil {
		return nil, err
	}

	joiner, err := reference.NewJoiner(pos, logg)
	if err != nil {
		return nil, err
	}
	salesExtractor, err := sales.NewExtractor(joiner, pos, logg)
	if err != nil {
		return nil, err
	}
	inventoryExtractor, err := inventory.NewExtractor(inventory.ExtractorParams{
		Source: pos,
		Gate:   gate,
		Policy: stockPolicy,
		Logger: logg,
	})
	if err != nil {
		return nil, err
	}
	writer, err := report.NewWriter(report.WriterParams{
		Store:      sheetClient,
		SalesSheet: cfg.Sheets.SalesTitle,
		StockSheet: cfg.Sheets.StockTitle,
		Location:   loc,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	services := &Services{Gate: gate, Sheets: sheetClient}

	sheetSink, err := runlog.NewSheetSink(sheetClient, cfg.Sheets.LogTitle, loc)
	if err != nil {
		return nil, err
	}
	sinks := []runlog.Sink{sheetSink}
	if cfg.BigQuery.Enabled() {
		if bq, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "bigquery run log mirror disabled")
		} else {
			services.BigQuery = bq
			services.closers = append(services.closers, bq.Close)
			bqSink, err := runlog.NewBigQuerySink(bq)
			if err != nil {
				_ = bq.Close()
				return nil, err
			}
			sinks = append(sinks, bqSink)
		}
	}

	p, err := pipeline.New(pipeline.Params{
		Gate:        gate,
		Window:      window,
		Sales:       salesExtractor,
		Inventory:   inventoryExtractor,
		Writer:      writer,
		LogSinks:    sinks,
		Logger:      logg,
		Metrics:     syncMetrics,
		Location:    loc,
		MaxAttempts: cfg.Sync.MaxAttempts,
		RetryDelay:  cfg.Sync.RetryDelay,
	})
	if err != nil {
		_ = services.Close()
		return nil, err
	}
	services.Pipeline = p
	return services, nil
}
