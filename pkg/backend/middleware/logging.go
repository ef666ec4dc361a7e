package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/loom/pkg/backend"
)

// Logging wraps inner, emitting structured backend/request and
// backend/response events (spec §6 event kinds) with elapsed time, the
// way cmd/tarsy/main.go's ambient slog usage does for every request.
func Logging(inner backend.Backend, logger *slog.Logger) backend.Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &logging{inner: inner, log: logger}
}

type logging struct {
	inner backend.Backend
	log   *slog.Logger
}

func (l *logging) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (backend.GenerateResult, error) {
	start := time.Now()
	l.log.Debug("backend/request", "op", "generate", "model", opts.Model)
	res, err := l.inner.Generate(ctx, prompt, opts)
	l.log.Debug("backend/response", "op", "generate", "elapsed_ms", time.Since(start).Milliseconds(), "error", errString(err))
	return res, err
}

func (l *logging) Embed(ctx context.Context, text string, opts backend.GenerateOptions) (backend.EmbedResult, error) {
	start := time.Now()
	l.log.Debug("backend/request", "op", "embed", "model", opts.Model)
	res, err := l.inner.Embed(ctx, text, opts)
	l.log.Debug("backend/response", "op", "embed", "elapsed_ms", time.Since(start).Milliseconds(), "error", errString(err))
	return res, err
}

func (l *logging) Stream(ctx context.Context, prompt string, opts backend.GenerateOptions) (<-chan backend.Chunk, error) {
	start := time.Now()
	l.log.Debug("backend/request", "op", "stream", "model", opts.Model)
	ch, err := l.inner.Stream(ctx, prompt, opts)
	l.log.Debug("backend/response", "op", "stream", "elapsed_ms", time.Since(start).Milliseconds(), "error", errString(err))
	return ch, err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
