package utils

import (
	"context"
	"math"
	"time"
)

// Backoff computes bounded exponential delays. The sequence is
// monotonically non-decreasing until it saturates at Max.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// DefaultBackoff returns conservative reconnect defaults.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial: 500 * time.Millisecond,
		Max:     30 * time.Second,
		Factor:  2.0,
	}
}

// Delay returns the backoff duration for a zero-based attempt number.
func (b Backoff) Delay(attempt int) time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	max := b.Max
	if max <= 0 {
		max = 30 * time.Second
	}
	factor := b.Factor
	if factor <= 1 {
		factor = 2.0
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(initial) * math.Pow(factor, float64(attempt))
	if delay > float64(max) {
		return max
	}
	return time.Duration(delay)
}

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts int
	Backoff     Backoff
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff: Backoff{
			Initial: 100 * time.Millisecond,
			Max:     10 * time.Second,
			Factor:  2.0,
		},
	}
}

// Retry executes fn with bounded exponential backoff, stopping early when
// ctx is cancelled. The last error is returned when attempts run out.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Backoff.Delay(attempt)):
		}
	}
	return lastErr
}

// RetryWithResult executes fn with bounded exponential backoff and returns
// its result.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(cfg.Backoff.Delay(attempt)):
		}
	}
	return zero, lastErr
}
