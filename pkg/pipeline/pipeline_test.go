package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/loom/pkg/module"
)

// Grounded on spec §8 scenario 2 verbatim.
func TestPipelineWordCountScenario(t *testing.T) {
	tok := module.Func(func(_ context.Context, in module.Map) (module.Map, error) {
		return module.Map{"tokens": strings.Fields(in["text"].(string))}, nil
	})
	count := module.Func(func(_ context.Context, in module.Map) (module.Map, error) {
		return module.Map{"word_count": len(in["tokens"].([]string))}, nil
	})
	upper := module.Func(func(_ context.Context, in module.Map) (module.Map, error) {
		toks := in["tokens"].([]string)
		out := make([]string, len(toks))
		for i, tk := range toks {
			out[i] = strings.ToUpper(tk)
		}
		return module.Map{"upper": out}, nil
	})
	fmtStage := module.Func(func(_ context.Context, in module.Map) (module.Map, error) {
		return module.Map{
			"summary": fmt.Sprintf("Processed %d words", in["word_count"].(int)),
			"result":  strings.Join(in["upper"].([]string), " "),
		}, nil
	})

	p, err := Compile([]Stage{
		{ID: "tok", Module: tok},
		{ID: "count", Module: count, DepsOn: []string{"tok"}},
		{ID: "upper", Module: upper, DepsOn: []string{"tok"}},
		{ID: "fmt", Module: fmtStage, DepsOn: []string{"count", "upper"}},
	}, nil)
	require.NoError(t, err)

	out, err := p.Call(context.Background(), module.Map{"text": "hello world clojure"}).Await(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, out["word_count"])
	assert.Equal(t, "Processed 3 words", out["summary"])
	assert.Equal(t, "HELLO WORLD CLOJURE", out["result"])
}

func TestCompileRejectsMissingDependency(t *testing.T) {
	noop := module.Func(func(_ context.Context, in module.Map) (module.Map, error) { return in, nil })
	_, err := Compile([]Stage{{ID: "a", Module: noop, DepsOn: []string{"ghost"}}}, nil)

	var missing *MissingDependencyError
	require.ErrorAs(t, err, &missing)
}

func TestCompileRejectsCycle(t *testing.T) {
	noop := module.Func(func(_ context.Context, in module.Map) (module.Map, error) { return in, nil })
	_, err := Compile([]Stage{
		{ID: "a", Module: noop, DepsOn: []string{"b"}},
		{ID: "b", Module: noop, DepsOn: []string{"a"}},
	}, nil)

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
}
