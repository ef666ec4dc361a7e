package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/codeready-toolchain/loom/pkg/backend"
)

// ErrCircuitOpen is the canonical error kind surfaced while the breaker is
// open (spec §6 CircuitOpen).
var ErrCircuitOpen = errors.New("backend: circuit open")

// CircuitBreakerConfig configures the closed/open/half-open state machine.
type CircuitBreakerConfig struct {
	FailureThreshold uint32        // consecutive failures before opening
	Cooldown         time.Duration // how long the breaker stays open
}

type circuitBreaking struct {
	inner backend.Backend
	cb    *gobreaker.CircuitBreaker[any]
}

// CircuitBreaker wraps inner with a three-state breaker, grounded on
// github.com/sony/gobreaker (confirmed as a real dependency of comparable
// agent frameworks in the retrieved pack — see DESIGN.md).
func CircuitBreaker(inner backend.Backend, cfg CircuitBreakerConfig) backend.Backend {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:    "backend",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
	return &circuitBreaking{inner: inner, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func execute[T any](cb *circuitBreaking, fn func() (T, error)) (T, error) {
	v, err := cb.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, errors.Join(ErrCircuitOpen, err)
		}
		return zero, err
	}
	return v.(T), nil
}

func (c *circuitBreaking) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (backend.GenerateResult, error) {
	return execute(c, func() (backend.GenerateResult, error) { return c.inner.Generate(ctx, prompt, opts) })
}

func (c *circuitBreaking) Embed(ctx context.Context, text string, opts backend.GenerateOptions) (backend.EmbedResult, error) {
	return execute(c, func() (backend.EmbedResult, error) { return c.inner.Embed(ctx, text, opts) })
}

func (c *circuitBreaking) Stream(ctx context.Context, prompt string, opts backend.GenerateOptions) (<-chan backend.Chunk, error) {
	return execute(c, func() (<-chan backend.Chunk, error) { return c.inner.Stream(ctx, prompt, opts) })
}
