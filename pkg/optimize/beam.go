package optimize

import (
	"context"
	"sort"
	"time"

	"github.com/codeready-toolchain/loom/pkg/async"
	"github.com/codeready-toolchain/loom/pkg/eval"
	"github.com/codeready-toolchain/loom/pkg/pipeline"
	"github.com/codeready-toolchain/loom/pkg/storage"
)

// convergenceWindow and convergenceEpsilon implement spec §4.J step 3f's
// "did not improve by more than a small epsilon over the prior k
// iterations" convergence rule.
const (
	convergenceWindow  = 3
	convergenceEpsilon = 1e-3
)

// EventFunc is an optional instrumentation hook (spec §6
// "Instrumentation events"); nil means no events are emitted.
type EventFunc func(kind string, fields map[string]any)

// scoredCandidate pairs a candidate pipeline with its mean score and
// its insertion index, so the stable sort in rank() can honor spec
// §4.J's "ties preserve earlier insertion order" rule explicitly
// rather than relying on sort.SliceStable's input-order guarantee
// alone surviving a reslice.
type scoredCandidate struct {
	pipeline *pipeline.Pipeline
	score    float64
	order    int
}

// beamStrategy is the production strategy of spec §4.J.
func beamStrategy(ctx context.Context, initial *pipeline.Pipeline, trainset []eval.Example, opts Options) (OptimizationResult, error) {
	if err := opts.validate(); err != nil {
		return OptimizationResult{}, err
	}
	opts = opts.withDefaults()
	if len(trainset) == 0 {
		return OptimizationResult{}, eval.ErrInvalidTrainset
	}

	runStart := time.Now()

	if opts.MaxIterations == 0 {
		// Zero requested iterations: return the initial pipeline
		// untouched rather than run (or even set up a storage run for)
		// a single step (spec §8's boundary case).
		return OptimizationResult{
			BestPipeline: initial,
			BestScore:    0.0,
			Iterations:   0,
			History:      nil,
			TotalTimeMs:  time.Since(runStart).Milliseconds(),
		}, nil
	}

	runID, beam, start, recentScores, err := initRun(ctx, initial, opts)
	if err != nil {
		return OptimizationResult{}, err
	}

	var history []storage.MetricRow
	converged := false
	best := scoredCandidate{pipeline: initial, score: 0}
	iter := start

	for ; iter < opts.MaxIterations; iter++ {
		candidates := generateCandidates(beam, opts.Mutator)
		scored, err := scoreCandidates(ctx, candidates, trainset, opts)
		if err != nil {
			return OptimizationResult{}, err
		}

		sorted := rank(scored)
		beam = topN(sorted, opts.BeamWidth)
		best = sorted[0]

		payload := map[string]any{
			"best_pipeline": best.pipeline.Snapshot(),
			"beam_size":     len(beam),
		}
		row := storage.MetricRow{Iter: iter, Score: best.score, Payload: payload}
		history = append(history, row)

		if opts.Storage != nil && iter%opts.CheckpointInterval == 0 {
			if err := opts.Storage.AppendMetric(ctx, runID, iter, best.score, payload); err != nil {
				return OptimizationResult{}, err
			}
		}

		if opts.Events != nil {
			opts.Events("optimization/iteration", map[string]any{
				"run_id": runID,
				"iter":   iter,
				"score":  best.score,
			})
		}

		recentScores = append(recentScores, best.score)
		if hasConverged(recentScores) {
			converged = true
			iter++
			break
		}
	}

	return OptimizationResult{
		BestPipeline: best.pipeline,
		BestScore:    best.score,
		RunID:        runID,
		Iterations:   iter,
		Converged:    converged,
		History:      history,
		TotalTimeMs:  time.Since(runStart).Milliseconds(),
	}, nil
}

// initRun creates (or resumes) a storage run. On resume it loads the
// run's stored MetricRows: the starting iteration is one past the latest
// row's Iter, and every row's score seeds the convergence history. The
// starting beam is always [initial]; the best_pipeline snapshot in the
// stored payload is not turned back into a beam member.
func initRun(ctx context.Context, initial *pipeline.Pipeline, opts Options) (runID string, beam []*pipeline.Pipeline, start int, recentScores []float64, err error) {
	beam = []*pipeline.Pipeline{initial}
	if opts.Storage == nil {
		return "", beam, 0, nil, nil
	}

	if opts.RunID != "" {
		rows, err := opts.Storage.LoadHistory(ctx, opts.RunID)
		if err != nil {
			return "", nil, 0, nil, err
		}
		if len(rows) > 0 {
			latest := rows[len(rows)-1]
			start = latest.Iter + 1
			for _, r := range rows {
				recentScores = append(recentScores, r.Score)
			}
		}
		return opts.RunID, beam, start, recentScores, nil
	}

	runID, err = opts.Storage.CreateRun(ctx, initial.Snapshot())
	if err != nil {
		return "", nil, 0, nil, err
	}
	return runID, beam, 0, nil, nil
}

// generateCandidates applies the mutator to every beam member (spec
// §4.J step 3a); mutators are opaque Pipeline -> []Pipeline functions.
func generateCandidates(beam []*pipeline.Pipeline, mutate Mutator) []*pipeline.Pipeline {
	var out []*pipeline.Pipeline
	for _, member := range beam {
		out = append(out, mutate(member)...)
	}
	return out
}

// scoreCandidates evaluates every candidate's mean score over trainset,
// bounded by opts.Concurrency (spec §4.J step 3b). A candidate whose
// evaluation fails contributes score 0.0, per the edge case in §4.J.
func scoreCandidates(ctx context.Context, candidates []*pipeline.Pipeline, trainset []eval.Example, opts Options) ([]scoredCandidate, error) {
	type indexed struct {
		p   *pipeline.Pipeline
		idx int
	}
	items := make([]indexed, len(candidates))
	for i, c := range candidates {
		items[i] = indexed{p: c, idx: i}
	}

	results, err := async.ParallelMap(ctx, opts.Concurrency, func(c context.Context, it indexed) (scoredCandidate, error) {
		report, err := eval.Evaluate(c, it.p, trainset, opts.Metric, eval.Options{Timeout: opts.Timeout}).Await(c)
		score := 0.0
		if err == nil {
			score = report.Score
		}
		return scoredCandidate{pipeline: it.p, score: score, order: it.idx}, nil
	}, items)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// rank sorts candidates by score descending, preserving earlier
// insertion order among ties (spec §4.J "Ordering & tie-breaks").
func rank(scored []scoredCandidate) []scoredCandidate {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].order < scored[j].order
	})
	return scored
}

func topN(sorted []scoredCandidate, n int) []*pipeline.Pipeline {
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]*pipeline.Pipeline, n)
	for i := 0; i < n; i++ {
		out[i] = sorted[i].pipeline
	}
	return out
}

// hasConverged implements the "no more than epsilon improvement over
// the prior k iterations" rule using the trailing convergenceWindow
// best-scores.
func hasConverged(recent []float64) bool {
	if len(recent) <= convergenceWindow {
		return false
	}
	window := recent[len(recent)-convergenceWindow-1:]
	base := window[0]
	for _, s := range window[1:] {
		if s-base > convergenceEpsilon {
			return false
		}
	}
	return true
}
