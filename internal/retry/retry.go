package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"polymarket-ingest/internal/metrics"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Delay is the pause after the given failed attempt (1-based):
// BaseDelay * 2^(attempt-1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << uint(attempt-1)
}

// RetryExhaustedError is returned once every attempt failed. It unwraps to
// the error of the last attempt.
type RetryExhaustedError struct {
	Label    string
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Label, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// permanent is implemented by errors that fail the same way on every
// attempt, such as a response body that does not decode.
type permanent interface {
	Permanent() bool
}

func IsPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p) && p.Permanent()
}

type SleepFunc func(ctx context.Context, d time.Duration) error

type Executor struct {
	Policy  Policy
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Sleep defaults to a context-aware timer wait.
	Sleep SleepFunc
}

func NewExecutor(policy Policy, logger *zap.Logger, m *metrics.Metrics) *Executor {
	return &Executor{Policy: policy, Logger: logger, Metrics: m}
}

// Do runs op until it succeeds or the policy's attempts are used up.
func Do[T any](ctx context.Context, e *Executor, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	policy := DefaultPolicy()
	sleep := sleepCtx
	logger := zap.NewNop()
	var m *metrics.Metrics
	if e != nil {
		if e.Policy.MaxAttempts > 0 {
			policy = e.Policy
		}
		if e.Sleep != nil {
			sleep = e.Sleep
		}
		if e.Logger != nil {
			logger = e.Logger
		}
		m = e.Metrics
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		val, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", zap.String("label", label), zap.Int("attempt", attempt))
			}
			return val, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: %w", label, ctx.Err())
		}
		if IsPermanent(err) {
			logger.Warn("operation failed permanently, not retrying", zap.String("label", label), zap.Int("attempt", attempt), zap.Error(err))
			return zero, fmt.Errorf("%s: %w", label, err)
		}
		if attempt == policy.MaxAttempts {
			break
		}
		delay := policy.Delay(attempt)
		m.IncRetry(label)
		logger.Warn("operation failed, retrying",
			zap.String("label", label),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("%s: %w", label, err)
		}
	}

	m.IncRetryExhausted(label)
	return zero, &RetryExhaustedError{Label: label, Attempts: policy.MaxAttempts, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
