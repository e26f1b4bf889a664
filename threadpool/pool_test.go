package threadpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolFIFOCompletesAllJobs(t *testing.T) {
	p := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx, 8)

	var counter atomic.Int64
	var completed atomic.Int64
	const jobs = 100

	for i := 0; i < jobs; i++ {
		require.NoError(t, p.Submit(func(arg any) {
			counter.Add(arg.(int64))
			completed.Add(1)
		}, int64(100)))
	}

	require.Eventually(t, func() bool {
		return completed.Load() == jobs
	}, 2*time.Second, time.Millisecond)

	require.EqualValues(t, 10000, counter.Load())
	require.EqualValues(t, jobs, completed.Load())
}

func TestPoolSubmitAfterCloseErrors(t *testing.T) {
	p := New()
	p.Close()
	err := p.Submit(func(any) {}, nil)
	require.ErrorIs(t, err, ErrClosed)
}

func TestPoolTryWorkOnEmptyQueue(t *testing.T) {
	p := New()
	require.False(t, p.TryWork())
}

func TestPoolTryWorkRunsQueuedJob(t *testing.T) {
	p := New()
	ran := make(chan struct{}, 1)
	require.NoError(t, p.Submit(func(any) { ran <- struct{}{} }, nil))

	require.True(t, p.TryWork())
	select {
	case <-ran:
	default:
		t.Fatal("job was not run")
	}
}

func TestPoolSubmitLockedBatchesUnderOneCriticalSection(t *testing.T) {
	p := New()

	p.Lock()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.SubmitLocked(func(any) {}, nil))
	}
	p.Unlock()

	require.Equal(t, 3, p.Len())
}

func TestPoolSubmitLockedAfterCloseErrors(t *testing.T) {
	p := New()
	p.Close()

	p.Lock()
	err := p.SubmitLocked(func(any) {}, nil)
	p.Unlock()

	require.ErrorIs(t, err, ErrClosed)
}
