// Package retry wraps fallible remote operations with bounded retries and
// exponential backoff. Every remote-touching call in the repository and
// migration engine goes through one shared Policy so a single transient
// failure never cascades into a fallback decision; only exhausted retries do.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"larder/pkg/platform/sentinel"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "larder_retry_attempts_total",
		Help: "Remote operation attempts, by operation name.",
	}, []string{"op"})
	exhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "larder_retry_exhausted_total",
		Help: "Operations that failed after all retry attempts.",
	}, []string{"op"})
)

const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
)

// Policy executes operations with exponential backoff. Worst-case total wait
// for n attempts is (2^(n-1) - 1) * InitialDelay; callers must not rely on
// unbounded backoff.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Logger       *slog.Logger
}

// Default returns the shared production policy: 3 attempts, 1s initial delay.
func Default(logger *slog.Logger) Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		Logger:       logger,
	}
}

// Do runs op until it succeeds or attempts are exhausted, doubling the delay
// between attempts. A zero or negative MaxAttempts still executes op once.
// Context cancellation aborts the backoff sleep and returns ctx.Err().
func (p Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptsTotal.WithLabelValues(name).Inc()
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent(lastErr) {
			// Factual outcomes (missing row, duplicate key, no session) will
			// not change on a retry; surface them immediately.
			return lastErr
		}
		if attempt == attempts {
			break
		}
		p.logger().Warn("retrying remote operation",
			"op", name,
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	exhaustedTotal.WithLabelValues(name).Inc()
	return lastErr
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, name, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

func permanent(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) ||
		errors.Is(err, sentinel.ErrConflict) ||
		errors.Is(err, sentinel.ErrUnauthenticated)
}

func (p Policy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
