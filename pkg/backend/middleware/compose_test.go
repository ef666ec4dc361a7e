package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/loom/pkg/backend"
)

// tagging appends a marker to the prompt before delegating, so the order
// wrappers actually run in is observable in the string the innermost
// backend receives: whichever wrapper runs first appends its tag first.
type tagging struct {
	inner backend.Backend
	tag   string
}

func (w *tagging) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (backend.GenerateResult, error) {
	return w.inner.Generate(ctx, prompt+w.tag, opts)
}

func (w *tagging) Embed(ctx context.Context, text string, opts backend.GenerateOptions) (backend.EmbedResult, error) {
	return w.inner.Embed(ctx, text, opts)
}

func (w *tagging) Stream(ctx context.Context, prompt string, opts backend.GenerateOptions) (<-chan backend.Chunk, error) {
	return w.inner.Stream(ctx, prompt, opts)
}

func TestComposeAppliesFirstWrapperOutermost(t *testing.T) {
	mock := backend.NewMockBackend()
	mock.SetResponses("ok")

	wrapped := Compose(mock,
		func(b backend.Backend) backend.Backend { return &tagging{inner: b, tag: "A:"} },
		func(b backend.Backend) backend.Backend { return &tagging{inner: b, tag: "B:"} },
	)
	_, err := wrapped.Generate(context.Background(), "hi", backend.GenerateOptions{})
	require.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "hiA:B:", calls[0])
}

func TestComposeWithNoWrappersReturnsBaseUnchanged(t *testing.T) {
	mock := backend.NewMockBackend()
	wrapped := Compose(mock)
	assert.Same(t, backend.Backend(mock), wrapped)
}
