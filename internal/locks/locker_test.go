package locks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_AcquireRelease(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "tree:alice")
	require.NoError(t, err)
	release()

	release2, err := l.Acquire(ctx, "tree:alice")
	require.NoError(t, err)
	release2()
}

func TestLocalLocker_ReleaseIdempotent(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "tree:alice")
	require.NoError(t, err)
	release()
	release()

	// A second release must not free a lock taken by someone else.
	held, err := l.Acquire(ctx, "tree:alice")
	require.NoError(t, err)
	defer held()
	release()

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(timeoutCtx, "tree:alice")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalLocker_BlocksUntilContextDone(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Acquire(context.Background(), "tree:alice")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "tree:alice")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	releaseA, err := l.Acquire(ctx, "tree:alice")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := l.Acquire(ctx, "tree:bob")
	require.NoError(t, err)
	releaseB()
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "tree:alice")
			if err != nil {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxInside)
}

func TestLocalLocker_DropsIdleKeys(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	for _, owner := range []string{"alice", "bob", "carol"} {
		release, err := l.Acquire(ctx, "tree:"+owner)
		require.NoError(t, err)
		release()
	}
	require.Equal(t, 0, l.slots.Size())

	held, err := l.Acquire(ctx, "tree:alice")
	require.NoError(t, err)

	// A waiter that gives up must not remove the holder's entry.
	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(timeoutCtx, "tree:alice")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, l.slots.Size())

	held()
	require.Equal(t, 0, l.slots.Size())

	release, err := l.Acquire(ctx, "tree:alice")
	require.NoError(t, err)
	release()
}

func TestLocalLocker_WaiterTakesOverAfterRelease(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	held, err := l.Acquire(ctx, "tree:alice")
	require.NoError(t, err)

	acquired := make(chan func(), 1)
	go func() {
		release, err := l.Acquire(ctx, "tree:alice")
		if err == nil {
			acquired <- release
		}
	}()

	require.Eventually(t, func() bool {
		s, ok := l.slots.Load("tree:alice")
		return ok && refsOf(l, s) == 2
	}, time.Second, time.Millisecond)

	held()
	select {
	case release := <-acquired:
		require.Equal(t, 1, l.slots.Size())
		release()
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
	require.Equal(t, 0, l.slots.Size())
}

// refsOf reads refs under the same bucket lock Acquire uses.
func refsOf(l *LocalLocker, s *slot) int {
	var refs int
	l.slots.Compute("tree:alice", func(old *slot, loaded bool) (*slot, xsync.ComputeOp) {
		if loaded && old == s {
			refs = old.refs
		}
		return old, xsync.CancelOp
	})
	return refs
}
