// Package async provides the cooperative-future primitives every other
// package in loom schedules work through. No caller blocks a goroutine
// waiting for I/O or for a timed delay; all timed waiting goes through
// In, After and Timeout in timer.go.
package async

import (
	"context"
	"sync"
)

// Future is a deferred value: a result that becomes available at most
// once, observed by any number of callers via Await.
type Future[T any] struct {
	mu   sync.Mutex
	done chan struct{}
	val  T
	err  error
	set  bool
}

// NewFuture returns an unresolved Future paired with the resolver used to
// complete it exactly once.
func NewFuture[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	resolve := func(v T, err error) {
		f.mu.Lock()
		if f.set {
			f.mu.Unlock()
			return
		}
		f.val, f.err, f.set = v, err, true
		f.mu.Unlock()
		close(f.done)
	}
	return f, resolve
}

// Resolved returns an already-completed Future.
func Resolved[T any](v T, err error) *Future[T] {
	f, resolve := NewFuture[T]()
	resolve(v, err)
	return f
}

// Await blocks the calling goroutine until the future resolves or ctx is
// cancelled. This is the one place a goroutine is allowed to block: the
// caller is a worker-pool goroutine, not a delay.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Chain runs fn against the resolved value of f on its own goroutine and
// returns a Future for fn's result. If f fails, the failure propagates
// without invoking fn.
func Chain[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out, resolve := NewFuture[U]()
	go func() {
		v, err := f.Await(context.Background())
		if err != nil {
			var zero U
			resolve(zero, err)
			return
		}
		u, err := fn(v)
		resolve(u, err)
	}()
	return out
}

// Zip waits for every future in fs and returns their values in order, or
// the first error encountered.
func Zip[T any](fs []*Future[T]) *Future[[]T] {
	out, resolve := NewFuture[[]T]()
	go func() {
		vals := make([]T, len(fs))
		for i, f := range fs {
			v, err := f.Await(context.Background())
			if err != nil {
				resolve(nil, err)
				return
			}
			vals[i] = v
		}
		resolve(vals, nil)
	}()
	return out
}
