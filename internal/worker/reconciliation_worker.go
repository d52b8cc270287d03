package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/custody-ledger/internal/observability"
	"github.com/ayo6706/custody-ledger/internal/service"
	"go.uber.org/zap"
)

// Reconciler produces a drift report for the native total.
type Reconciler interface {
	Run(ctx context.Context) (service.ReconciliationReport, error)
}

// ReconciliationWorker periodically revalues native custody against the recorded total.
type ReconciliationWorker struct {
	svc      Reconciler
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once

	mu   sync.RWMutex
	last *service.ReconciliationReport
}

// NewReconciliationWorker constructs a worker with a default hourly interval.
func NewReconciliationWorker(svc Reconciler) *ReconciliationWorker {
	return &ReconciliationWorker{
		svc:      svc,
		interval: time.Hour,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the run interval. Non-positive values are ignored.
func (w *ReconciliationWorker) WithInterval(interval time.Duration) *ReconciliationWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks, running once immediately and then on every tick.
func (w *ReconciliationWorker) Start(ctx context.Context) {
	zap.L().Info("reconciliation worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("reconciliation worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// Stop ends the loop. Safe to call more than once.
func (w *ReconciliationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *ReconciliationWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// RunOnce performs a single reconciliation and keeps the report on success.
func (w *ReconciliationWorker) RunOnce(ctx context.Context) {
	rep, err := w.svc.Run(ctx)
	if err != nil {
		observability.IncrementWorkerRun("reconciliation", "failed")
		zap.L().Error("reconciliation run failed", zap.Error(err))
		return
	}
	w.mu.Lock()
	w.last = &rep
	w.mu.Unlock()
	observability.IncrementWorkerRun("reconciliation", "success")
	if rep.OverCapped {
		// Price moves can push revalued custody past the cap; deposits stay
		// gated on the recorded total, so this is only surfaced.
		zap.L().Warn("revalued native holdings exceed the cap",
			zap.String("revalued", rep.Revalued.String()),
			zap.String("recorded", rep.Recorded.String()),
		)
	}
}

// LastReport returns the most recent successful report, if any.
func (w *ReconciliationWorker) LastReport() (service.ReconciliationReport, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.last == nil {
		return service.ReconciliationReport{}, false
	}
	return *w.last, true
}
