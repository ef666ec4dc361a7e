package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeToolValidatesInput(t *testing.T) {
	echo := Tool{
		Name: "echo",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"text"},
		},
		Invoke: func(_ context.Context, input map[string]any) (map[string]any, error) {
			return map[string]any{"text": input["text"]}, nil
		},
	}

	_, err := InvokeTool(context.Background(), echo, map[string]any{}, DefaultInvokeOptions())
	var invalid *InputInvalidError
	require.ErrorAs(t, err, &invalid)

	out, err := InvokeTool(context.Background(), echo, map[string]any{"text": "hi"}, DefaultInvokeOptions())
	require.NoError(t, err)
	assert.Equal(t, "hi", out["text"])
}

func TestRegistryGetAllIsDefensiveCopy(t *testing.T) {
	r := NewRegistry()
	r.Register(Tool{Name: "a"})

	snapshot := r.GetAll()
	delete(snapshot, "a")

	_, ok := r.Get("a")
	assert.True(t, ok, "mutating the snapshot must not affect the registry")
}

func TestInvokeToolMonitoredUpdatesStats(t *testing.T) {
	s := NewStats()
	noop := Tool{Name: "noop", Invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	}}

	_, err := InvokeToolMonitored(context.Background(), s, noop, map[string]any{}, InvokeOptions{TimeoutMs: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Get("noop").Invocations)
}

func TestInvokeToolZeroTimeoutFailsImmediately(t *testing.T) {
	called := false
	slow := Tool{Name: "slow", Invoke: func(_ context.Context, _ map[string]any) (map[string]any, error) {
		called = true
		return map[string]any{}, nil
	}}

	_, err := InvokeTool(context.Background(), slow, map[string]any{}, InvokeOptions{TimeoutMs: 0})
	var failed *ExecutionFailedError
	require.ErrorAs(t, err, &failed)
	assert.False(t, called, "a zero timeout must fail before the tool is invoked")
}

func TestInvokeToolNegativeTimeoutUsesDefault(t *testing.T) {
	echo := Tool{Name: "echo", Invoke: func(_ context.Context, input map[string]any) (map[string]any, error) {
		return input, nil
	}}

	out, err := InvokeTool(context.Background(), echo, map[string]any{"x": 1}, InvokeOptions{TimeoutMs: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, out["x"])
}
