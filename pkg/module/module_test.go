package module

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeChainsOutputToInput(t *testing.T) {
	double := Func(func(_ context.Context, in Map) (Map, error) {
		return Map{"n": in["n"].(int) * 2}, nil
	})
	incr := Func(func(_ context.Context, in Map) (Map, error) {
		return Map{"n": in["n"].(int) + 1}, nil
	})

	composed := Compose(double, incr)
	out, err := composed.Call(context.Background(), Map{"n": 3}).Await(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 7, out["n"])
}

func TestParallelMergesLastWriterWins(t *testing.T) {
	a := Func(func(_ context.Context, _ Map) (Map, error) { return Map{"x": 1, "shared": "a"}, nil })
	b := Func(func(_ context.Context, _ Map) (Map, error) { return Map{"y": 2, "shared": "b"}, nil })

	out, err := Parallel(a, b).Call(context.Background(), Map{}).Await(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, out["x"])
	assert.Equal(t, 2, out["y"])
	assert.Equal(t, "b", out["shared"])
}
