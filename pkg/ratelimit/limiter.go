// Package ratelimit paces outgoing order API requests.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request pacing.
var (
	throttleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_api_throttle_wait_seconds",
		Help:    "Time spent waiting for a request slot",
		Buckets: []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5},
	})

	throttledRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_api_throttled_requests_total",
		Help: "Total number of requests delayed by the pacer",
	})
)

// throttleLogThreshold is the wait above which a delay is logged.
const throttleLogThreshold = 50 * time.Millisecond

// Config holds pacing configuration.
type Config struct {
	// RequestsPerSecond caps the request rate. Zero or less disables pacing.
	RequestsPerSecond float64

	// Burst is the number of requests allowed back to back. Defaults to 1.
	Burst int
}

// DefaultConfig returns an unlimited configuration.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 0, Burst: 1}
}

// Limiter gates requests to a steady rate.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New creates a limiter.
func New(cfg Config, logger zerolog.Logger) *Limiter {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Unlimited reports whether the limiter never delays.
func (l *Limiter) Unlimited() bool {
	return l.limiter.Limit() == rate.Inf
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.Unlimited() {
		return ctx.Err()
	}

	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for request slot: %w", err)
	}

	waited := time.Since(start)
	throttleWaitSeconds.Observe(waited.Seconds())
	if waited >= throttleLogThreshold {
		throttledRequestsTotal.Inc()
		l.logger.Debug().Dur("wait_duration", waited).Msg("Request throttled")
	}

	return nil
}
