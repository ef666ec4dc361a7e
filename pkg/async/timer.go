package async

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is the error kind surfaced when a deferred's deadline expires
// before it resolves (spec §6 Timeout).
var ErrTimeout = errors.New("async: timeout")

// In schedules thunk to run after the given delay and returns a Future for
// its result. The delay is scheduled via time.AfterFunc (a single runtime
// timer), never via time.Sleep on a worker goroutine — this is the
// load-bearing no-thread-per-delay contract of spec §4.B/§5.
func In[T any](d time.Duration, thunk func() (T, error)) *Future[T] {
	out, resolve := NewFuture[T]()
	if d <= 0 {
		go func() {
			v, err := thunk()
			resolve(v, err)
		}()
		return out
	}
	time.AfterFunc(d, func() {
		v, err := thunk()
		resolve(v, err)
	})
	return out
}

// After resolves with no value once d has elapsed, scheduled the same way.
func After(d time.Duration) *Future[struct{}] {
	return In(d, func() (struct{}, error) { return struct{}{}, nil })
}

// Timeout wraps f so that it fails with ErrTimeout if it has not resolved
// within d. The underlying f continues running but its result, if it
// arrives late, is discarded by the caller.
func Timeout[T any](f *Future[T], d time.Duration) *Future[T] {
	out, resolve := NewFuture[T]()
	timer := time.AfterFunc(d, func() {
		var zero T
		resolve(zero, ErrTimeout)
	})
	go func() {
		v, err := f.Await(context.Background())
		if timer.Stop() {
			resolve(v, err)
		}
		// If the timer already fired, the timeout result wins and this is dropped.
	}()
	return out
}
