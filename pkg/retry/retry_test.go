package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxAttempts: 5, MinBackoff: 5 * time.Second, MaxBackoff: 15 * time.Second, Sleep: noSleep(&waits)}

	calls := 0
	err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, waits, 2)
	for _, w := range waits {
		assert.GreaterOrEqual(t, w, 5*time.Second)
		assert.LessOrEqual(t, w, 15*time.Second)
	}
}

func TestDo_Exhausted(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxAttempts: 3, Sleep: noSleep(&waits)}
	cause := errors.New("connection refused")

	err := p.Do(context.Background(), func(context.Context, int) error { return cause })

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, cause)
	assert.Len(t, waits, 2, "no wait after the final attempt")
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxAttempts: 5, Sleep: noSleep(&waits)}
	cause := errors.New("bad request")

	calls := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return Permanent(cause)
	})

	assert.Equal(t, cause, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestDo_RetryableFilter(t *testing.T) {
	p := Policy{MaxAttempts: 4, Retryable: func(error) bool { return false }}
	calls := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errors.New("nope")
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, MinBackoff: time.Hour, MaxBackoff: time.Hour}

	calls := 0
	err := p.Do(ctx, func(context.Context, int) error {
		calls++
		cancel()
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoff_Range(t *testing.T) {
	p := Policy{MinBackoff: time.Second, MaxBackoff: 2 * time.Second}
	for i := 0; i < 100; i++ {
		b := p.Backoff()
		assert.GreaterOrEqual(t, b, time.Second)
		assert.LessOrEqual(t, b, 2*time.Second)
	}
	assert.Equal(t, time.Duration(0), Policy{}.Backoff())
	assert.Equal(t, time.Second, Policy{MinBackoff: time.Second, MaxBackoff: time.Second}.Backoff())
}
