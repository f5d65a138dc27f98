package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWait_FirstSlotImmediate(t *testing.T) {
	t.Parallel()

	l := New(60)
	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "acme", 0))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWait_SerializesBurstsPerTarget(t *testing.T) {
	t.Parallel()

	// 1200/min = one slot every 50ms.
	l := New(0)
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "acme", 1200))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "acme", 1200))
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestWait_IndependentBudgetsAcrossTargets(t *testing.T) {
	t.Parallel()

	// 6/min = one slot every 10s; only the first slot per target is free.
	l := New(0)
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "acme", 6))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "globex", 6))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWait_ConcurrentCallersNeverExceedBudget(t *testing.T) {
	t.Parallel()

	// One slot every 50ms; 5 concurrent callers should take >= 4 intervals
	// beyond the initial token.
	l := New(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Wait(ctx, "acme", 1200))
		}()
	}
	wg.Wait()
	require.GreaterOrEqual(t, time.Since(start), 160*time.Millisecond)
}

func TestWait_ContextCancellationAborts(t *testing.T) {
	t.Parallel()

	// 1/min: the second wait would block for a minute.
	l := New(0)
	require.NoError(t, l.Wait(context.Background(), "acme", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "acme", 1)
	require.Error(t, err)
}
