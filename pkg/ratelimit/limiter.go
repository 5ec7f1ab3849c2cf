// Package ratelimit implements a blocking sliding-window request limiter.
// It keeps the timestamps of recently issued requests and delays the caller
// just long enough that no trailing window of the configured period ever
// contains more than the configured number of requests.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit pacing.
var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sincera_rate_limit_waits_total",
		Help: "Total number of requests delayed by the local rate limiter",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sincera_rate_limit_wait_seconds",
		Help:    "Duration of local rate limiter pauses",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	rateLimitWindowSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sincera_rate_limit_window_size",
		Help: "Number of request timestamps currently inside the trailing window",
	})
)

// Default limits for the Sincera open API.
const (
	// DefaultMaxRequests is the request cap per trailing window.
	DefaultMaxRequests = 45

	// DefaultPeriod is the length of the trailing window.
	DefaultPeriod = 60 * time.Second
)

// Limiter caps sustained request throughput over a trailing time window.
// Timestamps are appended in non-decreasing order, so eviction from the
// front keeps the window FIFO by construction. A Limiter is safe for
// concurrent use, though callers here drive it from a single goroutine.
type Limiter struct {
	maxRequests int
	period      time.Duration
	logger      zerolog.Logger

	mu         sync.Mutex
	timestamps []time.Time
}

// New creates a Limiter allowing maxRequests per trailing period.
// Non-positive arguments fall back to the Sincera defaults.
func New(maxRequests int, period time.Duration, logger zerolog.Logger) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if period <= 0 {
		period = DefaultPeriod
	}

	return &Limiter{
		maxRequests: maxRequests,
		period:      period,
		logger:      logger,
	}
}

// WaitIfNeeded blocks until issuing another request would not push the
// trailing-window count above the cap. It must be called before each
// request. It has no failure mode of its own; the only error it returns
// is ctx.Err() when the context is cancelled mid-pause.
func (l *Limiter) WaitIfNeeded(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	l.evict(now)

	var wait time.Duration
	if len(l.timestamps) >= l.maxRequests {
		// The oldest entry leaves the window at oldest+period; waiting
		// until then frees exactly one slot.
		wait = l.timestamps[0].Sub(now.Add(-l.period))
	}
	rateLimitWindowSize.Set(float64(len(l.timestamps)))
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	rateLimitWaitsTotal.Inc()
	rateLimitWaitSeconds.Observe(wait.Seconds())

	l.logger.Info().
		Dur("wait", wait).
		Int("max_requests", l.maxRequests).
		Dur("period", l.period).
		Msg("Rate limit reached, pausing")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// RecordRequest appends the current timestamp to the window. It must be
// called exactly once per request actually issued; skipped rows must not
// reserve window capacity.
func (l *Limiter) RecordRequest() {
	l.mu.Lock()
	l.timestamps = append(l.timestamps, time.Now())
	rateLimitWindowSize.Set(float64(len(l.timestamps)))
	l.mu.Unlock()
}

// evict drops timestamps older than now-period. Caller must hold mu.
func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.period)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}

// windowCount reports how many recorded requests remain inside the
// trailing window ending at now.
func (l *Limiter) windowCount(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.period)
	n := 0
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}
