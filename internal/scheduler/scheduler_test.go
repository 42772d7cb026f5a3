package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerStartStop(t *testing.T) {
	sched := New()

	assert.False(t, sched.IsRunning())
	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())

	// Starting twice is an error
	assert.Error(t, sched.Start())

	require.NoError(t, sched.Stop())
	assert.False(t, sched.IsRunning())

	// Stopping twice is harmless
	require.NoError(t, sched.Stop())
}

func TestSchedulerEvery(t *testing.T) {
	sched := New()

	var runs int32
	sched.Every("tick", time.Second, func(ctx context.Context) {
		atomic.AddInt32(&runs, 1)
	})

	require.NoError(t, sched.Start())
	time.Sleep(2500 * time.Millisecond)
	require.NoError(t, sched.Stop())

	count := atomic.LoadInt32(&runs)
	assert.GreaterOrEqual(t, count, int32(1))

	// No further runs once stopped
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, count, atomic.LoadInt32(&runs))
}

func TestSchedulerEveryReplaces(t *testing.T) {
	sched := New()

	sched.Every("tick", time.Hour, func(context.Context) {})
	sched.Every("tick", 30*time.Minute, func(context.Context) {})

	jobs := sched.Jobs()
	assert.Len(t, jobs, 1)
	_, ok := jobs["tick"]
	assert.True(t, ok)
}

func TestSchedulerAfter(t *testing.T) {
	sched := New()
	require.NoError(t, sched.Start())

	done := make(chan struct{})
	sched.After(10*time.Millisecond, func(ctx context.Context) {
		close(done)
	})
	assert.Equal(t, 1, sched.PendingTimers())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("delayed job never fired")
	}
	assert.Equal(t, 0, sched.PendingTimers())

	require.NoError(t, sched.Stop())
}

func TestSchedulerAfterSkippedWhenStopped(t *testing.T) {
	sched := New()
	require.NoError(t, sched.Start())

	var fired int32
	sched.After(200*time.Millisecond, func(ctx context.Context) {
		atomic.AddInt32(&fired, 1)
	})
	require.NoError(t, sched.Stop())

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	assert.Equal(t, 0, sched.PendingTimers())
}

func TestSchedulerRestart(t *testing.T) {
	sched := New()

	var runs int32
	sched.Every("tick", time.Second, func(ctx context.Context) {
		atomic.AddInt32(&runs, 1)
	})

	require.NoError(t, sched.Start())
	require.NoError(t, sched.Stop())

	// Jobs survive a stop and keep running after restart
	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())
	time.Sleep(2500 * time.Millisecond)
	require.NoError(t, sched.Stop())
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(1))

	// Delayed jobs scheduled after a restart run on the fresh context
	require.NoError(t, sched.Start())
	done := make(chan struct{})
	sched.After(10*time.Millisecond, func(ctx context.Context) {
		if ctx.Err() == nil {
			close(done)
		}
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("delayed job skipped after restart")
	}
	require.NoError(t, sched.Stop())
}
