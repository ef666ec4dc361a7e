package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/loom/pkg/backend"
)

var errFlaky = errors.New("flaky")

func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	mock := backend.NewMockBackend()
	attempts := 0
	mock.SetGenerateFunc(func(string) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errFlaky
		}
		return "ok", nil
	})

	wrapped := Retry(mock, RetryConfig{MaxRetries: 3, Initial: time.Millisecond, Factor: 2})
	res, err := wrapped.Generate(context.Background(), "hi", backend.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhaustsAndWrapsErrRetriable(t *testing.T) {
	mock := backend.NewMockBackend()
	mock.SetGenerateFunc(func(string) (string, error) { return "", errFlaky })

	wrapped := Retry(mock, RetryConfig{MaxRetries: 2, Initial: time.Millisecond, Factor: 2})
	_, err := wrapped.Generate(context.Background(), "hi", backend.GenerateOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriable)
}
