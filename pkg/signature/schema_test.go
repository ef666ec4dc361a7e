package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInput(t *testing.T) {
	sig := Signature{
		Name:   "qa",
		Inputs: []Field{{Name: "question"}},
		Outputs: []Field{{Name: "answer"}},
	}

	assert.True(t, ValidateInput(sig, map[string]any{"question": "2+2?"}))
	assert.False(t, ValidateInput(sig, map[string]any{}))
}

func TestExplainInputReportsMissingField(t *testing.T) {
	sig := Signature{
		Name:   "qa",
		Inputs: []Field{{Name: "question"}},
	}

	d := ExplainInput(sig, map[string]any{})
	require.False(t, d.Valid)
	require.NotEmpty(t, d.Issues)
}

func TestRegistryDefineIsIdempotentByName(t *testing.T) {
	r := NewRegistry()
	r.Define("qa", []Field{{Name: "question"}}, []Field{{Name: "answer"}})
	r.Define("qa", []Field{{Name: "question"}, {Name: "context"}}, []Field{{Name: "answer"}})

	sig, ok := r.Get("qa")
	require.True(t, ok)
	assert.Equal(t, []string{"question", "context"}, sig.InputNames())
}

func TestWithOutputDoesNotMutateOriginal(t *testing.T) {
	base := Signature{Name: "qa", Outputs: []Field{{Name: "answer"}}}
	derived := base.WithOutput(Field{Name: "rationale"})

	assert.Equal(t, []string{"answer"}, base.OutputNames())
	assert.Equal(t, []string{"rationale", "answer"}, derived.OutputNames())
}
