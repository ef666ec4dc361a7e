package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/codeready-toolchain/loom/pkg/async"
	"github.com/codeready-toolchain/loom/pkg/backend"
)

// ErrRetriable is the sentinel wrapped around the last error of a call
// that exhausted its retry budget (spec §6 Retriable).
var ErrRetriable = errors.New("backend: retriable error exhausted retries")

// RetryConfig configures the Retry middleware.
type RetryConfig struct {
	MaxRetries int
	Initial    time.Duration
	Factor     float64
	Retryable  func(error) bool // nil treats every error as retryable
}

type retrying struct {
	inner backend.Backend
	cfg   RetryConfig
}

// Retry wraps inner with exponential backoff + jitter, classified by
// cfg.Retryable (default: everything is retryable, matching the spec's
// "network/5xx/timeout kinds" default intent at the call-site's
// discretion). Backoff delays are scheduled via pkg/async, never slept —
// backoff/v4's own Retry() loop sleeps on the caller, so only its
// BackOff policy (ExponentialBackOff) is reused here, not its runner.
func Retry(inner backend.Backend, cfg RetryConfig) backend.Backend {
	if cfg.Retryable == nil {
		cfg.Retryable = func(error) bool { return true }
	}
	return &retrying{inner: inner, cfg: cfg}
}

func (r *retrying) policy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if r.cfg.Initial > 0 {
		b.InitialInterval = r.cfg.Initial
	}
	if r.cfg.Factor > 0 {
		b.Multiplier = r.cfg.Factor
	}
	b.Reset()
	return b
}

func runWithRetry[T any](ctx context.Context, r *retrying, call func(context.Context) (T, error)) (T, error) {
	b := r.policy()
	var zero T
	attempts := r.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		v, err := call(ctx)
		if err == nil {
			return v, nil
		}
		if !r.cfg.Retryable(err) {
			return zero, err
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}
		delay := b.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		if _, werr := async.After(delay).Await(ctx); werr != nil {
			return zero, werr
		}
	}
	return zero, errors.Join(ErrRetriable, lastErr)
}

func (r *retrying) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (backend.GenerateResult, error) {
	return runWithRetry(ctx, r, func(ctx context.Context) (backend.GenerateResult, error) {
		return r.inner.Generate(ctx, prompt, opts)
	})
}

func (r *retrying) Embed(ctx context.Context, text string, opts backend.GenerateOptions) (backend.EmbedResult, error) {
	return runWithRetry(ctx, r, func(ctx context.Context) (backend.EmbedResult, error) {
		return r.inner.Embed(ctx, text, opts)
	})
}

func (r *retrying) Stream(ctx context.Context, prompt string, opts backend.GenerateOptions) (<-chan backend.Chunk, error) {
	return runWithRetry(ctx, r, func(ctx context.Context) (<-chan backend.Chunk, error) {
		return r.inner.Stream(ctx, prompt, opts)
	})
}
