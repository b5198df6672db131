package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	folderrerrors "github.com/foldermcp/folderd/internal/errors"
)

func fastRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetrySucceedsWithoutRetryingOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryPolicy(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRetriesUntilSuccessWithinBudget(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryPolicy(), func() error {
		calls++
		if calls < 3 {
			return folderrerrors.WorkerLostError("worker died", nil)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsImmediatelyOnNonRetryableError(t *testing.T) {
	calls := 0
	parseErr := folderrerrors.ParseError("malformed document", nil)
	err := Retry(context.Background(), fastRetryPolicy(), func() error {
		calls++
		return parseErr
	})
	assert.ErrorIs(t, err, parseErr)
	assert.Equal(t, 1, calls, "a non-retryable error must not be retried")
}

func TestRetryReturnsLastErrorAfterExhaustingBudget(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryPolicy(), func() error {
		calls++
		return folderrerrors.WorkerTimeoutError("no response", nil)
	})
	require.Error(t, err)
	assert.Equal(t, fastRetryPolicy().MaxRetries+1, calls)
}

func TestRetryStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastRetryPolicy(), func() error {
		calls++
		return folderrerrors.WorkerLostError("worker died", nil)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls, "a cancelled context must stop retry before the first attempt")
}

func TestRetryPlainErrorsAreNotRetried(t *testing.T) {
	calls := 0
	plain := errors.New("boom")
	err := Retry(context.Background(), fastRetryPolicy(), func() error {
		calls++
		return plain
	})
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 1, calls)
}
