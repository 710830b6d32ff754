// Package jobs drives the periodic voucher batch passes.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pipeline is the pair of batch passes the scheduler drives.
type Pipeline interface {
	MaterializeVouchers(ctx context.Context) error
	DispatchOrders(ctx context.Context) error
}

// Scheduler runs materialization and dispatch on independent tickers.
// Each job runs at most once at a time; a tick that arrives while the
// previous pass is still running is skipped.
type Scheduler struct {
	pipeline            Pipeline
	materializeInterval time.Duration
	dispatchInterval    time.Duration

	materializeMu sync.Mutex
	dispatchMu    sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(p Pipeline, materializeInterval, dispatchInterval time.Duration) *Scheduler {
	return &Scheduler{
		pipeline:            p,
		materializeInterval: materializeInterval,
		dispatchInterval:    dispatchInterval,
	}
}

// Start launches both loops. They stop when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)
	go s.loop(ctx, "materialize_vouchers", s.materializeInterval, s.RunMaterialize)
	go s.loop(ctx, "dispatch_orders", s.dispatchInterval, s.RunDispatch)
	slog.Info("voucher scheduler started",
		"materialize_interval", s.materializeInterval.String(),
		"dispatch_interval", s.dispatchInterval.String(),
	)
}

// Stop cancels both loops and waits for in-flight passes to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	slog.Info("voucher scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, name string, every time.Duration, run func(context.Context) bool) {
	defer s.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !run(ctx) {
				slog.Debug("job still running, tick skipped", "job", name)
			}
		}
	}
}

// RunMaterialize performs one materialization pass unless one is already
// running. It reports whether the pass ran.
func (s *Scheduler) RunMaterialize(ctx context.Context) bool {
	return runOnce(ctx, &s.materializeMu, "materialize_vouchers", s.pipeline.MaterializeVouchers)
}

// RunDispatch performs one dispatch pass unless one is already running.
func (s *Scheduler) RunDispatch(ctx context.Context) bool {
	return runOnce(ctx, &s.dispatchMu, "dispatch_orders", s.pipeline.DispatchOrders)
}

func runOnce(ctx context.Context, mu *sync.Mutex, name string, job func(context.Context) error) bool {
	if !mu.TryLock() {
		return false
	}
	defer mu.Unlock()
	start := time.Now()
	if err := job(ctx); err != nil {
		slog.Error("job finished with errors", "job", name, "duration", time.Since(start).String(), "err", err)
		return true
	}
	slog.Debug("job finished", "job", name, "duration", time.Since(start).String())
	return true
}
