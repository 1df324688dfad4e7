// Package reaper physically removes secrets whose logical lifecycle
// has ended: past their expiry, or consumed by a one-time view.
package reaper

import (
	"context"
	"time"

	"github.com/chainguard-dev/clog"

	"hushbox/internal/store"
)

// Reaper sweeps dead records out of the store. Sweeps are idempotent;
// a sweep racing a concurrent view is benign, since a view that loses
// the race observes not-found, an already-modeled failure.
type Reaper struct {
	store store.Store
	now   func() time.Time
}

// Option configures a Reaper.
type Option func(*Reaper)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reaper) { r.now = now }
}

func New(st store.Store, opts ...Option) *Reaper {
	r := &Reaper{store: st, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sweep deletes every record that is expired or viewed-and-one-time,
// returning how many were removed.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	removed, err := r.store.DeleteDead(ctx, r.now())
	if err != nil {
		clog.FromContext(ctx).Errorf("sweep failed after %d deletions: %v", removed, err)
		return removed, err
	}
	clog.FromContext(ctx).Infof("sweep deleted %d secrets", removed)
	return removed, nil
}

// Run sweeps on the given interval until ctx is done, for deployments
// without an external scheduler.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.Sweep(ctx)
		}
	}
}
