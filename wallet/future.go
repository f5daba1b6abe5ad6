// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wallet

import (
	"context"
	"sync"
)

// Future is a single-assignment cell for the result of an asynchronous
// operation. A Future begins unsettled. The first call to Resolve or Reject
// settles it and unblocks all waiters. Later settlement attempts are dropped.
// Remote collaborators return structs of Futures when the fields of a result
// settle independently.
type Future[T any] struct {
	done    chan struct{}
	mtx     sync.Mutex
	settled bool
	val     T
	err     error
}

// NewFuture creates an unsettled Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved creates a Future already settled with the value.
func Resolved[T any](val T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(val)
	return f
}

// Rejected creates a Future already settled with the error.
func Rejected[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

// Resolve settles the Future with a value. Only the first settlement takes
// effect.
func (f *Future[T]) Resolve(val T) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.settled {
		return
	}
	f.settled = true
	f.val = val
	close(f.done)
}

// Reject settles the Future with an error. Only the first settlement takes
// effect.
func (f *Future[T]) Reject(err error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.settled {
		return
	}
	f.settled = true
	f.err = err
	close(f.done)
}

// Wait blocks until the Future settles or the context is canceled.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
