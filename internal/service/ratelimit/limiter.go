// Package ratelimit throttles signal intake per ticker.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key. Buckets idle longer than the
// eviction window are dropped on the next sweep.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*bucket
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	lastSweep time.Time
}

// New allows perMinute events per key with the given burst.
func New(perMinute, burst int) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		m:     make(map[string]*bucket),
		limit: rate.Limit(float64(perMinute) / 60),
		burst: burst,
		idle:  10 * time.Minute,
		now:   time.Now,
	}
}

// Allow reports whether one event for key may happen now.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idle {
		l.sweepLocked(now)
	}

	b, ok := l.m[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.m[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Sweep removes buckets that have not been used within the idle window.
// Allow also sweeps once per window.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.now())
}

func (l *Limiter) sweepLocked(now time.Time) int {
	l.lastSweep = now
	cutoff := now.Add(-l.idle)
	removed := 0
	for k, b := range l.m {
		if b.seen.Before(cutoff) {
			delete(l.m, k)
			removed++
		}
	}
	return removed
}
