package daemon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ActiveFunc returns the currently active profile.
type ActiveFunc func(ctx context.Context) (string, bool)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *zap.Logger
}

// Reconciler periodically re-evaluates the active profile so hotplugs and
// changes made in the OS display settings reach the tray and windows.
type Reconciler struct {
	interval time.Duration
	active   ActiveFunc
	onChange func(active string)
	logger   *zap.Logger

	mu     sync.Mutex
	primed bool
	last   string
}

// NewReconciler creates a reconciler. onChange runs whenever the active
// profile differs from the previous pass.
func NewReconciler(cfg ReconcilerConfig, active ActiveFunc, onChange func(active string)) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		interval: interval,
		active:   active,
		onChange: onChange,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("reconciler started", zap.Duration("interval", r.interval))
	r.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// ReconcileNow performs a pass immediately and reports whether the active
// profile changed.
func (r *Reconciler) ReconcileNow(ctx context.Context) bool {
	return r.reconcile(ctx)
}

func (r *Reconciler) reconcile(ctx context.Context) (changed bool) {
	// A panicking backend must not take the daemon down.
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", zap.Any("error", err))
			changed = false
		}
	}()

	name, _ := r.active(ctx)

	r.mu.Lock()
	changed = r.primed && name != r.last
	r.primed = true
	r.last = name
	r.mu.Unlock()

	if changed {
		r.logger.Info("active profile changed", zap.String("active", name))
		r.onChange(name)
	}
	return changed
}
