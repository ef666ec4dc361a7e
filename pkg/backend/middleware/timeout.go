package middleware

import (
	"context"
	"time"

	"github.com/codeready-toolchain/loom/pkg/backend"
)

// Timeout wraps inner so every call runs under a context whose deadline
// is d from the start of the call, and a stream's output channel is
// closed once that deadline passes. The wrapper produces no error of its
// own: a backend that honors its context fails with the context's error
// (context.DeadlineExceeded), which is not wrapped in async.ErrTimeout,
// and a Generate or Embed call whose backend ignores its context is not
// interrupted. d <= 0 disables the wrapper.
func Timeout(inner backend.Backend, d time.Duration) backend.Backend {
	if d <= 0 {
		return inner
	}
	return &timingOut{inner: inner, d: d}
}

type timingOut struct {
	inner backend.Backend
	d     time.Duration
}

func (t *timingOut) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (backend.GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Generate(ctx, prompt, opts)
}

func (t *timingOut) Embed(ctx context.Context, text string, opts backend.GenerateOptions) (backend.EmbedResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Embed(ctx, text, opts)
}

func (t *timingOut) Stream(ctx context.Context, prompt string, opts backend.GenerateOptions) (<-chan backend.Chunk, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	ch, err := t.inner.Stream(ctx, prompt, opts)
	if err != nil {
		cancel()
		return nil, err
	}
	out := make(chan backend.Chunk)
	go func() {
		defer cancel()
		defer close(out)
		for {
			select {
			case c, ok := <-ch:
				if !ok {
					return
				}
				out <- c
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
