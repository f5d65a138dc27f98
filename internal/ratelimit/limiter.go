// Package ratelimit implements token bucket request gating with an
// independent budget per target.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jobradar/harvester/internal/metrics"
)

// Limiter manages per-target token buckets. Budgets are expressed in
// requests per minute; burst is fixed at 1 so bursts against a single
// target serialize instead of draining the bucket at once.
type Limiter struct {
	mu               sync.Mutex
	buckets          map[string]*rate.Limiter
	defaultPerMinute int
}

// New creates a Limiter. defaultPerMinute applies to targets that do not
// carry their own budget; zero or negative disables the default gate.
func New(defaultPerMinute int) *Limiter {
	return &Limiter{
		buckets:          make(map[string]*rate.Limiter),
		defaultPerMinute: defaultPerMinute,
	}
}

// Wait blocks until a request slot for key is available, or the context is
// done. The first call for a key fixes its budget; perMinute <= 0 falls back
// to the default.
func (l *Limiter) Wait(ctx context.Context, key string, perMinute int) error {
	bucket := l.bucketFor(key, perMinute)

	start := time.Now()
	if err := bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", key, err)
	}
	if delay := time.Since(start); delay > time.Millisecond {
		metrics.ObserveRateLimitDelay(key, delay)
	}
	return nil
}

func (l *Limiter) bucketFor(key string, perMinute int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if bucket, ok := l.buckets[key]; ok {
		return bucket
	}
	if perMinute <= 0 {
		perMinute = l.defaultPerMinute
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	bucket := rate.NewLimiter(limit, 1)
	l.buckets[key] = bucket
	return bucket
}
