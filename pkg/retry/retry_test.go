package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func fast(opts ...Option) *Retrier {
	return New(append([]Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond), WithJitter(0)}, opts...)...)
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	var retried []int
	r := fast(WithMaxAttempts(4), WithOnRetry(func(attempt int, _ error, _ time.Duration) {
		retried = append(retried, attempt)
	}))

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errFlaky)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_StopsOnPlainAndPermanentErrors(t *testing.T) {
	calls := 0
	err := fast().Do(context.Background(), func(context.Context) error {
		calls++
		return errFlaky
	})
	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = fast(WithRetryIf(func(error) bool { return true })).Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errFlaky)
	})
	assert.Equal(t, errFlaky, err, "marker is stripped")
	assert.Equal(t, 1, calls)
}

func TestDo_ReturnsLastErrorAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := fast(WithMaxAttempts(3)).Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errFlaky)
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 3, calls)
}

func TestDo_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fast().Do(ctx, func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	got, err := DoWithData(context.Background(), fast(), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, Retryable(errFlaky)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestCalculateDelay_CapsAtMax(t *testing.T) {
	r := New(WithInitialDelay(100*time.Millisecond), WithMaxDelay(300*time.Millisecond), WithJitter(0))
	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(3))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(8))
}

func TestPresets(t *testing.T) {
	assert.Equal(t, 3, TextGenRetrier().MaxAttempts())
	assert.Equal(t, 5, DatabaseRetrier().MaxAttempts())
	assert.Equal(t, 3, CacheRetrier().MaxAttempts())
	assert.Equal(t, 1, DatabaseRetrier().With(WithMaxAttempts(1)).MaxAttempts())
}
