package order

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper cancels abandoned checkouts on a fixed interval.
type Sweeper struct {
	Svc      *Service
	TTL      time.Duration
	Interval time.Duration
	Log      *slog.Logger
}

// Run blocks until ctx is done. A non-positive TTL disables sweeping.
func (w *Sweeper) Run(ctx context.Context) {
	if w.TTL <= 0 || w.Interval <= 0 {
		w.Log.Info("order_sweeper_disabled")
		return
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.Log.Info("order_sweeper_started", "ttl", w.TTL.String(), "interval", w.Interval.String())
	for {
		select {
		case <-ctx.Done():
			w.Log.Info("order_sweeper_stopped")
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

func (w *Sweeper) SweepOnce(ctx context.Context) int {
	n, err := w.Svc.ExpireStale(ctx, w.TTL)
	if err != nil {
		w.Log.Error("order_sweep_failed", "error", err)
		return 0
	}
	if n > 0 {
		w.Log.Info("order_sweep_success", "cancelled", n)
	}
	return n
}
