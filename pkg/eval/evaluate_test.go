package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/loom/pkg/async"
	"github.com/codeready-toolchain/loom/pkg/module"
)

func echoAnswer(ctx context.Context, input module.Map) (module.Map, error) {
	return module.Map{"answer": input["question"]}, nil
}

func TestExactMatchTrimsAndLowercases(t *testing.T) {
	require.Equal(t, 1.0, ExactMatch(map[string]any{"answer": "  Paris "}, map[string]any{"answer": "paris"}))
	require.Equal(t, 0.0, ExactMatch(map[string]any{"answer": "Paris"}, map[string]any{"answer": "London"}))
}

func TestPassageMatchFindsSubstring(t *testing.T) {
	actual := map[string]any{"answer": "blue"}
	expected := map[string]any{"passage": "the sky is blue today"}
	require.Equal(t, 1.0, PassageMatch(actual, expected))
}

func TestNormalizeDatasetAcceptsQuestionAnswerShape(t *testing.T) {
	rows := []any{
		map[string]any{"question": "2+2?", "answer": "4"},
	}
	examples, err := NormalizeDataset(rows)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	require.Equal(t, "2+2?", examples[0].Input["question"])
	require.Equal(t, "4", examples[0].Expected["answer"])
}

func TestNormalizeDatasetAcceptsPositionalPair(t *testing.T) {
	rows := []any{
		[]any{"2+2?", "4"},
	}
	examples, err := NormalizeDataset(rows)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	require.Equal(t, "2+2?", examples[0].Input["question"])
	require.Equal(t, "4", examples[0].Expected["answer"])
}

func TestNormalizeDatasetRejectsEmpty(t *testing.T) {
	_, err := NormalizeDataset(nil)
	require.ErrorIs(t, err, ErrInvalidTrainset)
}

func TestEvaluateSequentialScoresPerfectMatch(t *testing.T) {
	program := module.Func(echoAnswer)
	dataset := []Example{
		{Input: map[string]any{"question": "paris"}, Expected: map[string]any{"answer": "paris"}},
		{Input: map[string]any{"question": "london"}, Expected: map[string]any{"answer": "london"}},
	}
	report, err := Evaluate(context.Background(), program, dataset, ExactMatch, Options{Timeout: -1}).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1.0, report.Score)
	require.Len(t, report.Results, 2)
}

func TestEvaluateParallelMatchesSequentialScore(t *testing.T) {
	program := module.Func(echoAnswer)
	dataset := []Example{
		{Input: map[string]any{"question": "a"}, Expected: map[string]any{"answer": "a"}},
		{Input: map[string]any{"question": "b"}, Expected: map[string]any{"answer": "x"}},
	}
	report, err := Evaluate(context.Background(), program, dataset, ExactMatch, Options{Parallel: true, Concurrency: 2, Timeout: -1}).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0.5, report.Score)
}

func TestEvaluateZeroTimeoutFailsEveryExampleImmediately(t *testing.T) {
	program := module.Func(echoAnswer)
	dataset := []Example{
		{Input: map[string]any{"question": "paris"}, Expected: map[string]any{"answer": "paris"}},
	}
	report, err := Evaluate(context.Background(), program, dataset, ExactMatch, Options{Timeout: 0}).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0.0, report.Score)
	require.Len(t, report.Results, 1)
	require.False(t, report.Results[0].Success)
	require.ErrorIs(t, report.Results[0].Error, async.ErrTimeout)
}

func TestEvaluateRejectsEmptyDataset(t *testing.T) {
	program := module.Func(echoAnswer)
	_, err := Evaluate(context.Background(), program, nil, ExactMatch, Options{}).Await(context.Background())
	require.ErrorIs(t, err, ErrInvalidTrainset)
}
