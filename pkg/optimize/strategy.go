package optimize

import (
	"context"
	"time"

	"github.com/codeready-toolchain/loom/pkg/eval"
	"github.com/codeready-toolchain/loom/pkg/pipeline"
	"github.com/codeready-toolchain/loom/pkg/storage"
)

// identityStrategy returns the input pipeline unchanged with a history
// of length 1 (spec §4.J: "for testing"). It still exercises storage
// and the metric so it can stand in for beam in integration tests.
func identityStrategy(ctx context.Context, p *pipeline.Pipeline, trainset []eval.Example, opts Options) (OptimizationResult, error) {
	if err := opts.validate(); err != nil {
		return OptimizationResult{}, err
	}
	opts = opts.withDefaults()
	if len(trainset) == 0 {
		return OptimizationResult{}, eval.ErrInvalidTrainset
	}

	start := time.Now()
	report, err := eval.Evaluate(ctx, p, trainset, opts.Metric, eval.Options{Timeout: opts.Timeout}).Await(ctx)
	if err != nil {
		return OptimizationResult{}, err
	}

	var runID string
	var history []storage.MetricRow
	if opts.Storage != nil {
		runID, err = opts.Storage.CreateRun(ctx, p.Snapshot())
		if err != nil {
			return OptimizationResult{}, err
		}
		payload := map[string]any{"best_pipeline": p.Snapshot()}
		if err := opts.Storage.AppendMetric(ctx, runID, 0, report.Score, payload); err != nil {
			return OptimizationResult{}, err
		}
		history, err = opts.Storage.LoadHistory(ctx, runID)
		if err != nil {
			return OptimizationResult{}, err
		}
	} else {
		history = []storage.MetricRow{{Iter: 0, Score: report.Score, Payload: map[string]any{"best_pipeline": p.Snapshot()}}}
	}

	return OptimizationResult{
		BestPipeline: p,
		BestScore:    report.Score,
		RunID:        runID,
		Iterations:   1,
		Converged:    true,
		History:      history,
		TotalTimeMs:  time.Since(start).Milliseconds(),
	}, nil
}
