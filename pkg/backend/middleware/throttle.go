// Package middleware implements the Backend-preserving wrappers of spec
// §4.D: throttle, retry, timeout, circuit breaker, logging. Each wrapper
// takes a backend.Backend and returns one, so they compose by nesting.
package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/codeready-toolchain/loom/pkg/async"
	"github.com/codeready-toolchain/loom/pkg/backend"
)

// ThrottleConfig configures the token-bucket rate limiter.
type ThrottleConfig struct {
	RPS   float64
	Burst int
}

// throttle is a FIFO token-bucket limiter. Admission waits are scheduled
// through pkg/async.In rather than slept on the calling goroutine — per
// spec §4.D this is load-bearing, and is why golang.org/x/time/rate (whose
// Wait blocks the caller) is deliberately not used here; see DESIGN.md.
type throttle struct {
	inner backend.Backend

	mu       sync.Mutex
	tokens   float64
	capacity float64
	rps      float64
	last     time.Time
	waiters  []chan struct{} // FIFO queue of admitted waiters
}

// Throttle wraps inner with a token-bucket limiter enforced uniformly
// across Generate/Embed/Stream.
func Throttle(inner backend.Backend, cfg ThrottleConfig) backend.Backend {
	capacity := float64(cfg.Burst)
	if capacity <= 0 {
		capacity = cfg.RPS
	}
	return &throttle{
		inner:    inner,
		tokens:   capacity,
		capacity: capacity,
		rps:      cfg.RPS,
		last:     time.Now(),
	}
}

// admit blocks (via a scheduled, non-blocking-sleep wait) until a token is
// available, then consumes one. Waiters are served FIFO.
func (t *throttle) admit(ctx context.Context) error {
	myTurn := make(chan struct{})
	t.mu.Lock()
	t.waiters = append(t.waiters, myTurn)
	first := len(t.waiters) == 1
	t.mu.Unlock()
	if first {
		close(myTurn)
	}

	select {
	case <-myTurn:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		t.mu.Lock()
		t.refill()
		if t.tokens >= 1 {
			t.tokens--
			t.waiters = t.waiters[1:]
			t.mu.Unlock()
			if len(t.waiters) > 0 {
				close(t.waiters[0])
			}
			return nil
		}
		wait := time.Duration((1 - t.tokens) / t.rps * float64(time.Second))
		t.mu.Unlock()
		if wait <= 0 {
			wait = time.Millisecond
		}
		if _, err := async.After(wait).Await(ctx); err != nil {
			return err
		}
	}
}

func (t *throttle) refill() {
	now := time.Now()
	elapsed := now.Sub(t.last).Seconds()
	t.last = now
	t.tokens += elapsed * t.rps
	if t.tokens > t.capacity {
		t.tokens = t.capacity
	}
}

func (t *throttle) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (backend.GenerateResult, error) {
	if err := t.admit(ctx); err != nil {
		return backend.GenerateResult{}, err
	}
	return t.inner.Generate(ctx, prompt, opts)
}

func (t *throttle) Embed(ctx context.Context, text string, opts backend.GenerateOptions) (backend.EmbedResult, error) {
	if err := t.admit(ctx); err != nil {
		return backend.EmbedResult{}, err
	}
	return t.inner.Embed(ctx, text, opts)
}

func (t *throttle) Stream(ctx context.Context, prompt string, opts backend.GenerateOptions) (<-chan backend.Chunk, error) {
	if err := t.admit(ctx); err != nil {
		return nil, err
	}
	return t.inner.Stream(ctx, prompt, opts)
}
