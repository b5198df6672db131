package lifecycle

import (
	"context"
	"time"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

// RetryPolicy configures the bounded exponential-backoff retry applied
// to each task: default 3 attempts, 250ms initial delay doubling each
// attempt, capped at 8s.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy returns the bounded-backoff policy tasks use unless
// a caller overrides it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   2,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

// Retry runs fn with exponential backoff, stopping early if fn returns
// an error that folderrerrors.IsRetryable reports as non-retryable
// (e.g. a parse error, which no number of retries will fix).
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	delay := policy.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !folderrerrors.IsRetryable(err) {
			return err
		}
		if attempt >= policy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return lastErr
}
