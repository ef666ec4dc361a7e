package optimize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/loom/pkg/eval"
	"github.com/codeready-toolchain/loom/pkg/module"
	"github.com/codeready-toolchain/loom/pkg/pipeline"
	"github.com/codeready-toolchain/loom/pkg/storage"
)

func echoPipeline(t *testing.T) *pipeline.Pipeline {
	echo := module.Func(func(ctx context.Context, input module.Map) (module.Map, error) {
		return module.Map{"answer": input["question"]}, nil
	})
	p, err := pipeline.Compile([]pipeline.Stage{{ID: "echo", Module: echo}}, nil)
	require.NoError(t, err)
	return p
}

func trainset() []eval.Example {
	return []eval.Example{
		{Input: map[string]any{"question": "a"}, Expected: map[string]any{"answer": "a"}},
		{Input: map[string]any{"question": "b"}, Expected: map[string]any{"answer": "b"}},
		{Input: map[string]any{"question": "c"}, Expected: map[string]any{"answer": "c"}},
	}
}

func TestCompileStrategyRejectsUnknownName(t *testing.T) {
	_, err := CompileStrategy("bogus")
	require.ErrorIs(t, err, ErrUnknownStrategy)
}

// Grounded on spec §8 scenario 6: identity strategy, 3-example
// trainset, exact-match metric, best_score=1.0, history length >= 1,
// load_history round-trips after completion.
func TestIdentityStrategyScenario(t *testing.T) {
	strategy, err := CompileStrategy("identity")
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := storage.NewFileTreeStorage(dir)
	require.NoError(t, err)

	result, err := strategy(context.Background(), echoPipeline(t), trainset(), Options{
		Metric:  eval.ExactMatch,
		Storage: store,
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, result.BestScore)
	require.True(t, result.Converged)
	require.GreaterOrEqual(t, len(result.History), 1)

	history, err := store.LoadHistory(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Equal(t, result.History, history)
}

func TestBeamStrategyConverges(t *testing.T) {
	strategy, err := CompileStrategy("beam")
	require.NoError(t, err)

	result, err := strategy(context.Background(), echoPipeline(t), trainset(), Options{
		Metric:        eval.ExactMatch,
		MaxIterations: 5,
		BeamWidth:     2,
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, result.BestScore)
	require.True(t, result.Converged)
	require.NotEmpty(t, result.History)
}

func TestBeamStrategyRejectsMissingMetric(t *testing.T) {
	strategy, err := CompileStrategy("beam")
	require.NoError(t, err)

	_, err = strategy(context.Background(), echoPipeline(t), trainset(), Options{})
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestBeamStrategyRejectsNegativeConcurrency(t *testing.T) {
	strategy, err := CompileStrategy("beam")
	require.NoError(t, err)

	_, err = strategy(context.Background(), echoPipeline(t), trainset(), Options{
		Metric:      eval.ExactMatch,
		Concurrency: -1,
	})
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestBeamStrategyRejectsEmptyTrainset(t *testing.T) {
	strategy, err := CompileStrategy("beam")
	require.NoError(t, err)

	_, err = strategy(context.Background(), echoPipeline(t), nil, Options{Metric: eval.ExactMatch})
	require.ErrorIs(t, err, eval.ErrInvalidTrainset)
}

// Grounded on spec §8's max_iterations=0 boundary case: result keeps
// the initial pipeline unchanged, score 0.0, and an empty history.
func TestBeamStrategyZeroMaxIterationsReturnsInitialPipelineUnchanged(t *testing.T) {
	strategy, err := CompileStrategy("beam")
	require.NoError(t, err)

	initial := echoPipeline(t)
	result, err := strategy(context.Background(), initial, trainset(), Options{
		Metric:        eval.ExactMatch,
		MaxIterations: 0,
	})
	require.NoError(t, err)
	require.Same(t, initial, result.BestPipeline)
	require.Equal(t, 0.0, result.BestScore)
	require.Equal(t, 0, result.Iterations)
	require.Empty(t, result.History)
	require.False(t, result.Converged)
}

func TestBeamStrategyNegativeMaxIterationsUsesDefault(t *testing.T) {
	strategy, err := CompileStrategy("beam")
	require.NoError(t, err)

	result, err := strategy(context.Background(), echoPipeline(t), trainset(), Options{
		Metric:        eval.ExactMatch,
		MaxIterations: -1,
		BeamWidth:     2,
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, result.BestScore)
}

// Grounded on the review's checkpoint-interval gap: a run whose
// checkpoint interval skips most iterations must still return the full
// in-memory history, not the checkpointed subset.
func TestBeamStrategyHistoryIncludesNonCheckpointedIterations(t *testing.T) {
	strategy, err := CompileStrategy("beam")
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := storage.NewFileTreeStorage(dir)
	require.NoError(t, err)

	result, err := strategy(context.Background(), echoPipeline(t), trainset(), Options{
		Metric:             eval.ExactMatch,
		MaxIterations:      4,
		BeamWidth:          2,
		CheckpointInterval: 5,
		Storage:            store,
	})
	require.NoError(t, err)
	require.Len(t, result.History, result.Iterations)
}

func TestBeamStrategyPopulatesTotalTimeMs(t *testing.T) {
	strategy, err := CompileStrategy("beam")
	require.NoError(t, err)

	result, err := strategy(context.Background(), echoPipeline(t), trainset(), Options{
		Metric:        eval.ExactMatch,
		MaxIterations: 2,
		BeamWidth:     2,
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.TotalTimeMs, int64(0))
}

func TestBeamStrategyResumesFromLatestCheckpoint(t *testing.T) {
	strategy, err := CompileStrategy("beam")
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := storage.NewFileTreeStorage(dir)
	require.NoError(t, err)

	first, err := strategy(context.Background(), echoPipeline(t), trainset(), Options{
		Metric:             eval.ExactMatch,
		MaxIterations:      2,
		CheckpointInterval: 1,
		Storage:            store,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.RunID)

	resumed, err := strategy(context.Background(), echoPipeline(t), trainset(), Options{
		Metric:             eval.ExactMatch,
		MaxIterations:      5,
		CheckpointInterval: 1,
		Storage:            store,
		RunID:              first.RunID,
	})
	require.NoError(t, err)
	require.Equal(t, first.RunID, resumed.RunID)
	require.GreaterOrEqual(t, resumed.Iterations, first.Iterations)
}
