// Package cron drives registered jobs on a fixed interval behind a lock so
// that only one worker replica syncs at a time.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nospicy/possync/pkg/logger"
	"github.com/nospicy/possync/pkg/metrics"
)

const defaultInterval = time.Hour

// ErrHalted is returned by Run once a job fails with an error the Fatal hook
// classifies as unrecoverable.
var ErrHalted = errors.New("cron service halted")

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// RunOnStart fires a cycle immediately instead of waiting a full interval.
	RunOnStart bool
	// Fatal reports whether a job error should stop the service. Nil means
	// every job error is logged and the loop keeps ticking.
	Fatal func(error) bool
}

// Service executes registered cron jobs on a fixed cadence.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	runOnStart bool
	fatal      func(error) bool
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:       params.Logger,
		registry:   registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   interval,
		runOnStart: params.RunOnStart,
		fatal:      params.Fatal,
	}, nil
}

// Interval is the delay between cycles.
func (s *Service) Interval() time.Duration {
	return s.interval
}

// Run starts the cron loop until the context is canceled or a job halts it
// with an ErrHalted error.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.runOnStart {
		if err := s.cycle(ctx); err != nil {
			return err
		}
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

// cycle runs once and only propagates halting errors.
func (s *Service) cycle(ctx context.Context) error {
	err := s.RunOnce(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrHalted) {
		s.logg.Error(ctx, "cron service halted by fatal job error", err)
		return err
	}
	s.logg.Error(ctx, "scheduled run failed", err)
	return nil
}

// RunOnce executes one cycle of every registered job if the lock is free.
// A fatal job error stops the cycle and is returned wrapped in ErrHalted.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another sync worker holds the lock; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Info(ctx, "scheduled run starting")
	for _, job := range s.registry.Jobs() {
		if err := s.runJob(ctx, job); err != nil && s.fatal != nil && s.fatal(err) {
			return fmt.Errorf("%w: job %s: %w", ErrHalted, job.Name(), err)
		}
	}
	s.logg.Info(ctx, "scheduled run complete")
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
	return nil
}
