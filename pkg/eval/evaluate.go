package eval

import (
	"context"
	"time"

	"github.com/codeready-toolchain/loom/pkg/async"
	"github.com/codeready-toolchain/loom/pkg/module"
)

// Result is one example's scoring outcome (spec §4.I results detail list).
type Result struct {
	Input   map[string]any
	Actual  map[string]any
	Score   float64
	Success bool
	Error   error
}

// Report is evaluate's resolved value.
type Report struct {
	Score   float64
	Results []Result
}

// Options configures evaluate. Timeout distinguishes "unset" from an
// explicit zero: a negative value means "use defaultTimeout", 0 is a
// deliberate request for every example to fail immediately with a
// Timeout (spec §8's boundary case), and a positive value is taken
// literally.
type Options struct {
	Parallel    bool
	Timeout     time.Duration
	Concurrency int
}

const defaultTimeout = 300 * time.Second

// Evaluate scores program against dataset with metric, sequentially by
// default or with bounded concurrency when opts.Parallel is set (spec
// §4.I). A per-example failure never fails the run: it degrades to
// score 0.0 and is recorded in Results.
func Evaluate(ctx context.Context, program module.Module, dataset []Example, metric Metric, opts Options) *async.Future[Report] {
	out, resolve := async.NewFuture[Report]()
	go func() {
		if len(dataset) == 0 {
			resolve(Report{}, ErrInvalidTrainset)
			return
		}
		timeout := opts.Timeout
		if timeout < 0 {
			timeout = defaultTimeout
		}

		var results []Result
		var err error
		if opts.Parallel {
			n := opts.Concurrency
			if n <= 0 {
				n = 8
			}
			results, err = async.ParallelMap(ctx, n, func(c context.Context, ex Example) (Result, error) {
				return evaluateSingle(c, program, ex, metric, timeout), nil
			}, dataset)
		} else {
			results = make([]Result, len(dataset))
			for i, ex := range dataset {
				results[i] = evaluateSingle(ctx, program, ex, metric, timeout)
			}
		}
		if err != nil {
			resolve(Report{}, err)
			return
		}
		resolve(Report{Score: meanScore(results), Results: results}, nil)
	}()
	return out
}

// evaluateSingle runs one example: program.call(input) |> chain(metric
// vs expected), wrapped in a per-example timeout. It never returns an
// error — failures degrade to {success=false, score=0.0}.
func evaluateSingle(ctx context.Context, program module.Module, ex Example, metric Metric, timeout time.Duration) Result {
	if timeout == 0 {
		// An explicit zero timeout has already elapsed: fail without
		// racing the call against a zero-delay timer.
		return Result{Input: ex.Input, Score: 0.0, Success: false, Error: async.ErrTimeout}
	}
	call := async.Timeout(program.Call(ctx, ex.Input), timeout)
	actual, err := call.Await(ctx)
	if err != nil {
		return Result{Input: ex.Input, Score: 0.0, Success: false, Error: err}
	}
	score := metric(actual, ex.Expected)
	return Result{Input: ex.Input, Actual: actual, Score: score, Success: true}
}

func meanScore(results []Result) float64 {
	var sum float64
	var n int
	for _, r := range results {
		sum += r.Score
		n++
	}
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}
