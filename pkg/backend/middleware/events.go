package middleware

import (
	"context"
	"time"

	"github.com/codeready-toolchain/loom/pkg/backend"
	"github.com/codeready-toolchain/loom/pkg/events"
)

// Instrumentation wraps inner, publishing backend/request and
// backend/response events (spec §6) onto bus instead of (or alongside)
// Logging. Kept as a separate middleware rather than folded into
// Logging so callers who don't need the events bus pay nothing for it.
func Instrumentation(inner backend.Backend, bus *events.Bus) backend.Backend {
	return &instrumenting{inner: inner, bus: bus}
}

type instrumenting struct {
	inner backend.Backend
	bus   *events.Bus
}

func (i *instrumenting) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (backend.GenerateResult, error) {
	i.bus.Publish(events.KindBackendRequest, map[string]any{"op": "generate", "model": opts.Model})
	start := time.Now()
	res, err := i.inner.Generate(ctx, prompt, opts)
	i.bus.Publish(events.KindBackendResponse, map[string]any{
		"op": "generate", "model": opts.Model,
		"elapsed_ms": time.Since(start).Milliseconds(), "error": errString(err),
	})
	return res, err
}

func (i *instrumenting) Embed(ctx context.Context, text string, opts backend.GenerateOptions) (backend.EmbedResult, error) {
	i.bus.Publish(events.KindBackendRequest, map[string]any{"op": "embed", "model": opts.Model})
	start := time.Now()
	res, err := i.inner.Embed(ctx, text, opts)
	i.bus.Publish(events.KindBackendResponse, map[string]any{
		"op": "embed", "model": opts.Model,
		"elapsed_ms": time.Since(start).Milliseconds(), "error": errString(err),
	})
	return res, err
}

func (i *instrumenting) Stream(ctx context.Context, prompt string, opts backend.GenerateOptions) (<-chan backend.Chunk, error) {
	i.bus.Publish(events.KindBackendRequest, map[string]any{"op": "stream", "model": opts.Model})
	start := time.Now()
	ch, err := i.inner.Stream(ctx, prompt, opts)
	i.bus.Publish(events.KindBackendResponse, map[string]any{
		"op": "stream", "model": opts.Model,
		"elapsed_ms": time.Since(start).Milliseconds(), "error": errString(err),
	})
	return ch, err
}
