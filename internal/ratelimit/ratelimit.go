// Package ratelimit provides a process-local sliding-window attempt
// limiter. It is best effort: its purpose is to slow brute-force
// password guessing against a secret, not to provide hard distributed
// guarantees.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count       int
	windowStart time.Time
}

// Limiter counts attempts per key within a sliding window. It is an
// explicitly-owned component: construct one per server and inject it,
// so tests can build isolated instances and control the clock.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	window time.Duration
	max    int
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter allowing max attempts per key within window.
func New(window time.Duration, max int, opts ...Option) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		max:     max,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records an attempt for key and reports whether it is allowed.
// When denied, retryAfter is the time remaining until the window
// resets.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		l.entries[key] = &entry{count: 1, windowStart: now}
		return true, 0
	}
	if now.Sub(e.windowStart) > l.window {
		e.count = 1
		e.windowStart = now
		return true, 0
	}
	if e.count >= l.max {
		return false, l.window - now.Sub(e.windowStart)
	}
	e.count++
	return true, 0
}

// Evict drops entries whose window has elapsed, bounding memory for
// long-lived processes. Returns the number of entries removed.
func (l *Limiter) Evict() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if now.Sub(e.windowStart) > l.window {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Run evicts stale entries on the given interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Evict()
		}
	}
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
