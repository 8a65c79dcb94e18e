package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	config "github.com/NordCoder/Studiobell/internal/config/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingTicker struct {
	calls    atomic.Int32
	deadline atomic.Bool
}

func (c *countingTicker) Tick(ctx context.Context) (Stats, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); ok {
		c.deadline.Store(true)
	}
	return Stats{Recipients: 1}, nil
}

func TestRunner_TicksImmediatelyAndStops(t *testing.T) {
	uc := &countingTicker{}
	r := New(zap.NewNop(), uc, &config.SchedCfg{Tick: time.Hour, RunTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return uc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	assert.EqualValues(t, 1, uc.calls.Load())
	assert.True(t, uc.deadline.Load(), "run is bounded by run_timeout")
}

func TestRunner_TicksOnInterval(t *testing.T) {
	uc := &countingTicker{}
	r := New(zap.NewNop(), uc, &config.SchedCfg{Tick: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.Eventually(t, func() bool { return uc.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}
