// Package reconciler periodically re-applies the configured admin accounts so a
// locked-out or demoted administrator is repaired without operator action.
package reconciler

import (
	"context"
	"log/slog"
	"time"
)

// AdminReconciler converges every configured admin account.
type AdminReconciler interface {
	ReconcileAll(ctx context.Context) error
}

// Reconciler runs an AdminReconciler on a fixed interval.
type Reconciler struct {
	admins   AdminReconciler
	interval time.Duration
}

// New creates a new Reconciler.
func New(admins AdminReconciler, interval time.Duration) *Reconciler {
	return &Reconciler{
		admins:   admins,
		interval: interval,
	}
}

// Start begins the reconciliation loop. It blocks until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	slog.Info("admin reconciler started", "interval", r.interval.String())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("admin reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) {
	if err := r.admins.ReconcileAll(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("reconciler: failed to reconcile admin accounts", "error", err)
	}
}
