package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fast(attempts int) Policy {
	return Policy{Name: "test", Attempts: attempts, Backoff: ExpoJitter{Base: time.Microsecond}}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, fast(5))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	var exhausted error
	p := fast(3)
	p.OnExhaust = func(err error) { exhausted = err }

	err := Do(context.Background(), func() error { calls++; return errors.New("down") }, p)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, err, exhausted)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	bad := errors.New("bad payload")
	calls := 0
	err := Do(context.Background(), func() error { calls++; return Permanent(bad) }, fast(5))
	assert.ErrorIs(t, err, bad)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestDo_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, func() error { calls++; return nil }, fast(3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestExpoJitter_Caps(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(10))
	assert.Equal(t, 100*time.Millisecond, b.Next(-1))

	j := ExpoJitter{Base: 100 * time.Millisecond, Jitter: 0.5}
	for i := 0; i < 20; i++ {
		d := j.Next(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestDefaultKafkaPolicy_SkipsCancellation(t *testing.T) {
	p := DefaultKafkaPolicy(nil)
	assert.True(t, p.Retryable(errors.New("leader not available")))
	assert.False(t, p.Retryable(context.Canceled))
	assert.False(t, p.Retryable(context.DeadlineExceeded))
}
