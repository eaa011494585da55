package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reconciler re-drives shipments that provisioning left incomplete.
type Reconciler interface {
	Reconcile(ctx context.Context, staleAfter time.Duration, maxAttempts, limit int) (int, error)
}

// Config controls how often and how aggressively the worker sweeps.
type Config struct {
	Interval    time.Duration
	StaleAfter  time.Duration
	MaxAttempts int
	BatchSize   int
}

// ReconciliationWorker periodically retries carrier booking for confirmed orders whose
// shipment is still unprovisioned.
type ReconciliationWorker struct {
	reconciler Reconciler
	cfg        Config
	logger     *zap.Logger
}

func NewReconciliationWorker(reconciler Reconciler, cfg Config, logger *zap.Logger) *ReconciliationWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 2 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationWorker{reconciler: reconciler, cfg: cfg, logger: logger.Named("reconciliation")}
}

// Run sweeps on every tick until ctx is cancelled.
func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.cfg.Interval)
	defer ticker.Stop()

	rw.logger.Info("reconciliation worker started", zap.Duration("interval", rw.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			rw.process(ctx)
		}
	}
}

func (rw *ReconciliationWorker) process(ctx context.Context) {
	n, err := rw.reconciler.Reconcile(ctx, rw.cfg.StaleAfter, rw.cfg.MaxAttempts, rw.cfg.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			rw.logger.Error("reconciliation failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		rw.logger.Info("re-drove stuck shipments", zap.Int("orders", n))
	}
}
