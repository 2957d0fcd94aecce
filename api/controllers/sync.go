package controllers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nospicy/possync/api/middleware"
	"github.com/nospicy/possync/api/responses"
	"github.com/nospicy/possync/internal/pipeline"
	"github.com/nospicy/possync/internal/runlog"
	pkgerrors "github.com/nospicy/possync/pkg/errors"
	"github.com/nospicy/possync/pkg/logger"
	"github.com/nospicy/possync/pkg/types"
)

const summaryTimeLayout = time.RFC3339

// SyncRunner runs one pipeline execution.
type SyncRunner interface {
	Run(ctx context.Context, trigger string) (pipeline.Result, error)
}

// SyncTrigger runs the pipeline inline. Only one run is admitted at a time;
// a request arriving while another is active gets 409.
func SyncTrigger(runner SyncRunner, logg *logger.Logger) http.HandlerFunc {
	var running atomic.Bool

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !running.CompareAndSwap(false, true) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a sync run is already in progress"))
			return
		}
		defer running.Store(false)

		trigger := runlog.TriggerAPI
		if middleware.TriggerAuthFromContext(ctx) == middleware.AuthScheduler {
			trigger = runlog.TriggerCron
		}

		res, err := runner.Run(ctx, trigger)
		summary := summarize(res)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSyncFailed, err, "sync failed").WithDetails(types.SyncFailure{
				Error:   err.Error(),
				Summary: summary,
			}))
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func summarize(res pipeline.Result) types.SyncSummary {
	s := types.SyncSummary{
		RunID:            res.RunID,
		Trigger:          res.Trigger,
		Skipped:          res.Skipped,
		Attempts:         res.Attempts,
		Receipts:         res.Receipts,
		LineItems:        res.LineItems,
		SalesRows:        res.SalesRows,
		InventoryRows:    res.InventoryRows,
		InventorySkipped: res.InventorySkipped,
		Warnings:         res.Warnings,
		DurationMS:       res.Duration.Milliseconds(),
	}
	if !res.NextRun.IsZero() {
		s.NextRun = res.NextRun.Format(summaryTimeLayout)
	}
	if !res.Window.From.IsZero() {
		s.WindowFrom = res.Window.From.Format(summaryTimeLayout)
		s.WindowTo = res.Window.To.Format(summaryTimeLayout)
	}
	return s
}
