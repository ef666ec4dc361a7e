// Package backend defines the uniform LLM interface every module execution
// is threaded through, and the factory that dispatches on a provider name
// (spec §4.D). Grounded on pkg/agent/llm_client.go's LLMClient/Chunk shape —
// not the gRPC-coupled pkg/llm/client.go, whose generated proto package is
// unavailable in this retrieval — generalized from a chunk-stream-only
// interface to the generate/embed/stream triple spec.md requires.
package backend

import (
	"context"
	"fmt"
)

// GenerateOptions configures a single generate call.
type GenerateOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TimeoutMs   int
}

// GenerateResult is the resolved value of a generate future.
type GenerateResult struct {
	Text  string
	Usage *Usage
}

// Usage mirrors pkg/agent/llm_client.go's UsageChunk.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// EmbedResult is the resolved value of an embed future.
type EmbedResult struct {
	Vector []float64
}

// Chunk is one piece of a streamed response.
type Chunk struct {
	Text  string
	Done  bool
	Usage *Usage
}

// Backend is the base contract (spec §4.D): generate, embed, stream. Stream
// may be unsupported — ErrStreamUnsupported signals that explicitly rather than
// the caller probing for a nil channel.
type Backend interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (GenerateResult, error)
	Embed(ctx context.Context, text string, opts GenerateOptions) (EmbedResult, error)
	Stream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan Chunk, error)
}

// ErrStreamUnsupported is returned by Stream implementations that do not
// support streaming (spec §4.D: "stream may be absent").
var ErrStreamUnsupported = fmt.Errorf("backend: stream unsupported")

// ErrBackendUnsupported is the canonical error kind for an unknown provider
// name passed to CreateBackend (spec §6 BackendUnsupported).
var ErrBackendUnsupported = fmt.Errorf("backend: unsupported provider")

// Config configures CreateBackend's dispatch.
type Config struct {
	Provider string
	Model    string
	APIKey   string
}

// Factory constructs a Backend from Config.
type Factory func(Config) (Backend, error)

var factories = map[string]Factory{
	"mock": func(cfg Config) (Backend, error) { return NewMockBackend(), nil },
}

// RegisterFactory makes a provider name available to CreateBackend. Real
// deployments register "openai"/"anthropic" factories that speak the
// respective SDK wire format — opaque behind this contract per spec §1.
func RegisterFactory(provider string, f Factory) {
	factories[provider] = f
}

// CreateBackend dispatches on cfg.Provider; an unregistered provider fails
// fast with ErrBackendUnsupported (spec §4.D).
func CreateBackend(cfg Config) (Backend, error) {
	f, ok := factories[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendUnsupported, cfg.Provider)
	}
	return f(cfg)
}
