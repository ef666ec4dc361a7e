package async

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ParallelMap applies f to each element of coll with at most n invocations
// in flight, propagating the first error and cancelling in-flight work
// (spec §4.B Cancellation). Completed results belonging to a failed call
// are discarded; the returned slice is only valid on a nil error.
//
// Grounded on pkg/queue/executor.go's executeStage: one goroutine per item,
// index-preserving collection, generalized here to use an errgroup/semaphore
// pair instead of a raw WaitGroup + channel so the first error cancels the
// group's context immediately.
func ParallelMap[T, U any](ctx context.Context, n int, f func(context.Context, T) (U, error), coll []T) ([]U, error) {
	if n <= 0 {
		n = 1
	}
	results := make([]U, len(coll))
	grp, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(n))

	for i, item := range coll {
		i, item := i, item
		if err := sem.Acquire(gctx, 1); err != nil {
			// Context already cancelled by an earlier failure.
			break
		}
		grp.Go(func() error {
			defer sem.Release(1)
			v, err := f(gctx, item)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
