// Package locks provides keyed mutual exclusion for tree mutations, in
// process or shared between instances through Redis or Postgres.
package locks

import (
	"context"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// Locker acquires a lock for key, blocking until it is held or ctx is done.
// The returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LocalLocker is an in-process Locker. Each key owns a one-slot channel;
// holding the lock means holding the slot. A key's entry lives only while
// someone holds or waits for it.
type LocalLocker struct {
	slots *xsync.Map[string, *slot]
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: xsync.NewMap[string, *slot]()}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	// refs is only touched inside Compute, which holds the bucket lock.
	s, _ := l.slots.Compute(key, func(old *slot, loaded bool) (*slot, xsync.ComputeOp) {
		if !loaded {
			old = &slot{ch: make(chan struct{}, 1)}
		}
		old.refs++
		return old, xsync.UpdateOp
	})

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key)
		return nil, fmt.Errorf("acquire lock for %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key)
		})
	}, nil
}

func (l *LocalLocker) unref(key string) {
	l.slots.Compute(key, func(old *slot, loaded bool) (*slot, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}
		old.refs--
		if old.refs == 0 {
			return old, xsync.DeleteOp
		}
		return old, xsync.UpdateOp
	})
}
