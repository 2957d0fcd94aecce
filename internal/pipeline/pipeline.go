// Package pipeline runs the POS to spreadsheet sync: gate, extract, write and
// log, with bounded fixed-delay retries.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nospicy/possync/internal/inventory"
	"github.com/nospicy/possync/internal/runlog"
	"github.com/nospicy/possync/internal/sales"
	pkgerrors "github.com/nospicy/possync/pkg/errors"
	"github.com/nospicy/possync/pkg/logger"
	"github.com/nospicy/possync/pkg/loyverse"
	"github.com/nospicy/possync/pkg/metrics"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 5 * time.Minute
)

var (
	// ErrFatal marks a run halted by an error that retrying cannot fix.
	ErrFatal = errors.New("sync halted")
	// ErrRetriesExhausted marks a run that failed on every allowed attempt.
	ErrRetriesExhausted = errors.New("sync retries exhausted")
)

// IsHalt reports whether err ends the process: a fatal error or a run that
// used up its retries.
func IsHalt(err error) bool {
	return errors.Is(err, ErrFatal) || errors.Is(err, ErrRetriesExhausted)
}

// Gate is the run window check.
type Gate interface {
	IsWithin(now time.Time) bool
	NextRun(now time.Time) time.Time
	Format(t time.Time) string
}

type SalesExtractor interface {
	Extract(ctx context.Context, window sales.DateRange) ([]loyverse.Receipt, error)
}

type InventoryExtractor interface {
	Extract(ctx context.Context) (inventory.Result, error)
}

type ReportWriter interface {
	WriteSales(ctx context.Context, receipts []loyverse.Receipt) (int, error)
	WriteInventory(ctx context.Context, records []inventory.Record) (int, error)
}

type Params struct {
	Gate        Gate
	Window      sales.WindowPolicy
	Sales       SalesExtractor
	Inventory   InventoryExtractor
	Writer      ReportWriter
	LogSinks    []runlog.Sink
	Logger      *logger.Logger
	Metrics     *metrics.SyncMetrics
	Location    *time.Location
	MaxAttempts int
	RetryDelay  time.Duration
	Now         func() time.Time
	Sleep       func(ctx context.Context, d time.Duration) error
}

// Result summarizes one Run call.
type Result struct {
	RunID            string
	Trigger          string
	Skipped          bool
	NextRun          time.Time
	Attempts         int
	Window           sales.DateRange
	Receipts         int
	LineItems        int
	SalesRows        int
	InventoryRows    int
	InventorySkipped bool
	Warnings         int
	Duration         time.Duration
}

type Pipeline struct {
	gate        Gate
	window      sales.WindowPolicy
	sales       SalesExtractor
	inventory   InventoryExtractor
	writer      ReportWriter
	sinks       []runlog.Sink
	logg        *logger.Logger
	metrics     *metrics.SyncMetrics
	loc         *time.Location
	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func New(params Params) (*Pipeline, error) {
	if params.Gate == nil {
		return nil, errors.New("schedule gate required")
	}
	if params.Sales == nil || params.Inventory == nil {
		return nil, errors.New("sales and inventory extractors required")
	}
	if params.Writer == nil {
		return nil, errors.New("report writer required")
	}
	if params.Window.Kind() == "" {
		return nil, errors.New("sales window policy required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	retryDelay := params.RetryDelay
	if retryDelay < 0 {
		retryDelay = defaultRetryDelay
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	sleep := params.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Pipeline{
		gate:        params.Gate,
		window:      params.Window,
		sales:       params.Sales,
		inventory:   params.Inventory,
		writer:      params.Writer,
		sinks:       params.LogSinks,
		logg:        logg,
		metrics:     params.Metrics,
		loc:         loc,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		now:         now,
		sleep:       sleep,
	}, nil
}

// WithMaxAttempts returns a copy of the pipeline bounded to n attempts.
func (p *Pipeline) WithMaxAttempts(n int) *Pipeline {
	cp := *p
	if n > 0 {
		cp.maxAttempts = n
	}
	return &cp
}

// Run executes one sync. Outside the run window it returns a skipped result
// and nil without writing a log entry. Authorization failures stop at once
// and wrap ErrFatal; other failures are retried up to the attempt bound and
// then wrap ErrRetriesExhausted. Exactly one log entry is written for every
// run that passes the gate.
func (p *Pipeline) Run(ctx context.Context, trigger string) (Result, error) {
	start := p.now()
	res := Result{RunID: uuid.NewString(), Trigger: trigger}
	if res.Trigger == "" {
		res.Trigger = runlog.TriggerLocal
	}
	ctx = p.logg.WithRunID(ctx, res.RunID)
	ctx = p.logg.WithField(ctx, "trigger", res.Trigger)

	p.transition(ctx, StateGating)
	if !p.gate.IsWithin(start) {
		res.Skipped = true
		res.NextRun = p.gate.NextRun(start)
		p.logg.Info(p.logg.WithField(ctx, "next_run", p.gate.Format(res.NextRun)), "outside run window, sync skipped")
		p.metrics.IncSkipped("pipeline", "schedule")
		p.finish(ctx, &res, start, "skipped")
		return res, nil
	}

	rec := runlog.New(res.Trigger, runlog.Options{
		RunID:    res.RunID,
		Sinks:    p.sinks,
		Logger:   p.logg,
		Location: p.loc,
		Now:      p.now,
	})

	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		attemptCtx := p.logg.WithField(ctx, "attempt", attempt)

		err := p.attempt(attemptCtx, rec, &res)
		if err == nil {
			p.metrics.IncAttempt("success")
			p.transition(attemptCtx, StateLogging)
			rec.LogSuccess(attemptCtx)
			p.finish(attemptCtx, &res, start, "success")
			return res, nil
		}
		p.metrics.IncAttempt("failure")

		switch {
		case pkgerrors.IsAuthorization(err):
			return p.halt(attemptCtx, rec, &res, start, "fatal", fmt.Errorf("%w: %w", ErrFatal, err))
		case ctx.Err() != nil:
			return p.halt(attemptCtx, rec, &res, start, "canceled", ctx.Err())
		case !pkgerrors.IsRetryable(err):
			return p.halt(attemptCtx, rec, &res, start, "fatal", fmt.Errorf("%w: %w", ErrFatal, err))
		case attempt >= p.maxAttempts:
			return p.halt(attemptCtx, rec, &res, start, "exhausted", fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err))
		}

		p.transition(attemptCtx, StateRetrying)
		p.logg.Warn(p.logg.WithFields(attemptCtx, map[string]any{
			"error":    err.Error(),
			"retry_in": p.retryDelay.String(),
		}), "sync attempt failed, retrying")
		if sleepErr := p.sleep(ctx, p.retryDelay); sleepErr != nil {
			return p.halt(attemptCtx, rec, &res, start, "canceled", sleepErr)
		}
	}
}

func (p *Pipeline) attempt(ctx context.Context, rec *runlog.Recorder, res *Result) error {
	p.transition(ctx, StateFetching)
	window := p.window.Resolve(p.now())
	res.Window = window
	rec.SetWindow(window.From, window.To)
	rec.SetSalesCounts(0, 0)
	rec.SetInventoryRows(0)

	receipts, err := p.sales.Extract(ctx, window)
	if err != nil {
		return err
	}
	summary := sales.Summarize(receipts)
	res.Receipts, res.LineItems = summary.Receipts, summary.LineItems
	rec.SetSalesCounts(summary.Receipts, summary.LineItems)

	p.transition(ctx, StateWriting)
	n, err := p.writer.WriteSales(ctx, receipts)
	if err != nil {
		return err
	}
	res.SalesRows = n
	p.metrics.AddRows("sales", n)

	p.transition(ctx, StateFetching)
	inv, err := p.inventory.Extract(ctx)
	if err != nil {
		return err
	}
	res.Warnings = len(inv.Warnings)
	if inv.Skipped {
		res.InventorySkipped = true
		p.metrics.IncSkipped("inventory", "schedule")
		return nil
	}

	p.transition(ctx, StateWriting)
	n, err = p.writer.WriteInventory(ctx, inv.Records)
	if err != nil {
		return err
	}
	res.InventoryRows = n
	rec.SetInventoryRows(n)
	p.metrics.AddRows("inventory", n)
	return nil
}

func (p *Pipeline) halt(ctx context.Context, rec *runlog.Recorder, res *Result, start time.Time, outcome string, err error) (Result, error) {
	p.transition(ctx, StateFatal)
	p.logg.Error(p.logg.WithField(ctx, "error_dump", pkgerrors.Dump(err)), "sync halted", err)
	p.transition(ctx, StateLogging)
	// the error row must be written even when ctx was canceled
	rec.LogError(context.WithoutCancel(ctx), err)
	p.finish(ctx, res, start, outcome)
	return *res, err
}

func (p *Pipeline) finish(ctx context.Context, res *Result, start time.Time, outcome string) {
	res.Duration = p.now().Sub(start)
	p.metrics.ObserveRun(res.Trigger, outcome, res.Duration)
	p.transition(p.logg.WithField(ctx, "outcome", outcome), StateIdle)
}

func (p *Pipeline) transition(ctx context.Context, s State) {
	p.logg.Info(p.logg.WithField(ctx, "state", string(s)), "sync state")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
