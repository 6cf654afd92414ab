package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds the retry loop around Generate calls.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy matches the backend's published rate-limit guidance.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   1.5,
	}
}

// Do invokes op up to policy.MaxAttempts times, sleeping with
// exponential backoff between attempts. Only errors whose kind is
// retryable trigger another attempt; everything else returns
// immediately. Context cancellation interrupts the backoff sleep.
func Do[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, op func() (T, error)) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := policy.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		var ge *Error
		if !errors.As(err, &ge) || !ge.Retryable() {
			return zero, err
		}
		if attempt == attempts {
			return zero, fmt.Errorf("after %d attempts: %w", attempt, err)
		}

		logger.Warn("backend over quota, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * policy.Multiplier)
	}
	return zero, lastErr
}
