// Package runlog records one audit entry per pipeline run. Sink failures are
// reported to the console logger and never returned.
package runlog

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/nospicy/possync/pkg/logger"
)

type Options struct {
	RunID    string
	Sinks    []Sink
	Logger   *logger.Logger
	Location *time.Location
	Now      func() time.Time
}

// Recorder collects the facts of one run and writes them once it ends.
type Recorder struct {
	sinks []Sink
	logg  *logger.Logger
	loc   *time.Location
	now   func() time.Time
	start time.Time
	entry Entry
}

// New captures the start time and trigger of a run.
func New(trigger string, opts Options) *Recorder {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	if trigger == "" {
		trigger = TriggerLocal
	}

	start := now()
	return &Recorder{
		sinks: opts.Sinks,
		logg:  logg,
		loc:   loc,
		now:   now,
		start: start,
		entry: Entry{
			RunID:     runID,
			StartedAt: start.In(loc),
			Trigger:   trigger,
		},
	}
}

func (r *Recorder) RunID() string {
	return r.entry.RunID
}

func (r *Recorder) Trigger() string {
	return r.entry.Trigger
}

// SetWindow records the requested receipt window.
func (r *Recorder) SetWindow(from, to time.Time) {
	r.entry.WindowFrom = from
	r.entry.WindowTo = to
}

func (r *Recorder) SetSalesCounts(receipts, lineItems int) {
	r.entry.Receipts = receipts
	r.entry.LineItems = lineItems
}

func (r *Recorder) SetInventoryRows(n int) {
	r.entry.InventoryRows = n
}

// LogSuccess appends a success entry and returns it.
func (r *Recorder) LogSuccess(ctx context.Context) Entry {
	return r.finish(ctx, OutcomeSuccess, noError)
}

// LogError appends an error entry carrying err's message and returns it.
func (r *Recorder) LogError(ctx context.Context, err error) Entry {
	msg := noError
	if err != nil {
		msg = err.Error()
	}
	return r.finish(ctx, OutcomeError, msg)
}

func (r *Recorder) finish(ctx context.Context, outcome, msg string) Entry {
	e := r.entry
	e.Outcome = outcome
	e.Error = msg
	e.DurationSeconds = int64(math.Round(r.now().Sub(r.start).Seconds()))

	for _, sink := range r.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Append(ctx, e); err != nil {
			r.logg.Error(r.logg.WithField(ctx, "sink", sink.Name()), "run log write failed", err)
		}
	}
	return e
}
