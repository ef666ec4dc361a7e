package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/loom/pkg/backend"
)

func TestCircuitBreakerPassesThroughOnSuccess(t *testing.T) {
	mock := backend.NewMockBackend()
	mock.SetResponses("ok")

	wrapped := CircuitBreaker(mock, CircuitBreakerConfig{})
	res, err := wrapped.Generate(context.Background(), "hi", backend.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	mock := backend.NewMockBackend()
	mock.SetGenerateFunc(func(string) (string, error) { return "", errFlaky })

	wrapped := CircuitBreaker(mock, CircuitBreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})

	_, err := wrapped.Generate(context.Background(), "hi", backend.GenerateOptions{})
	require.Error(t, err)
	_, err = wrapped.Generate(context.Background(), "hi", backend.GenerateOptions{})
	require.Error(t, err)

	// The second failure opened the breaker, so the third call is rejected
	// without reaching the inner backend.
	_, err = wrapped.Generate(context.Background(), "hi", backend.GenerateOptions{})
	require.ErrorIs(t, err, ErrCircuitOpen)
}
