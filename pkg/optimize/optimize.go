// Package optimize implements the optimization engine of spec §4.J:
// strategy dispatch plus the production beam-search strategy with
// checkpoint/resume against pkg/storage.
package optimize

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/loom/pkg/eval"
	"github.com/codeready-toolchain/loom/pkg/pipeline"
	"github.com/codeready-toolchain/loom/pkg/storage"
)

// ErrUnknownStrategy is spec §6's UnknownStrategy kind.
var ErrUnknownStrategy = fmt.Errorf("optimize: unknown strategy")

// ErrInvalidOptions is spec §6's InvalidOptions kind.
var ErrInvalidOptions = fmt.Errorf("optimize: invalid options")

// Candidate is one beam member paired with its evaluation score.
type Candidate struct {
	Pipeline *pipeline.Pipeline
	Score    float64
}

// OptimizationResult is strategy_fn's resolved value (spec §4.J step 4).
type OptimizationResult struct {
	BestPipeline *pipeline.Pipeline
	BestScore    float64
	RunID        string
	Iterations   int
	Converged    bool
	History      []storage.MetricRow
	TotalTimeMs  int64
}

// Options configures a strategy run (spec §4.J parameters, all with
// the spec's documented defaults).
type Options struct {
	BeamWidth         int
	MaxIterations     int
	Concurrency       int
	CheckpointInterval int
	Timeout           time.Duration
	RunID             string // non-empty to resume an existing run
	Mutator           Mutator
	Metric            eval.Metric
	Storage           storage.Storage // nil disables persistence
	Events            EventFunc       // nil disables instrumentation
}

// validate rejects options a default can't paper over (spec §6's
// InvalidOptions kind): a missing metric would otherwise nil-panic deep
// inside eval.Evaluate, and a negative numeric parameter is a caller
// error, not a signal to fall back to the default. MaxIterations is
// exempt: a negative value is its "unset" sentinel, not an error (see
// withDefaults).
func (o Options) validate() error {
	if o.Metric == nil {
		return fmt.Errorf("%w: metric is required", ErrInvalidOptions)
	}
	if o.BeamWidth < 0 || o.Concurrency < 0 || o.CheckpointInterval < 0 {
		return fmt.Errorf("%w: numeric parameters must be non-negative", ErrInvalidOptions)
	}
	return nil
}

// withDefaults resolves every unset numeric option to its documented
// default. MaxIterations distinguishes "unset" from an explicit zero: a
// negative value means "use the default of 10", 0 is a deliberate
// request to return the initial pipeline untouched (spec §8's boundary
// case, handled by beamStrategy before the loop), and a positive value
// is taken literally.
func (o Options) withDefaults() Options {
	if o.BeamWidth <= 0 {
		o.BeamWidth = 4
	}
	if o.MaxIterations < 0 {
		o.MaxIterations = 10
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.CheckpointInterval <= 0 {
		o.CheckpointInterval = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 300 * time.Second
	}
	if o.Mutator == nil {
		o.Mutator = IdentityMutator
	}
	return o
}

// StrategyFn runs an optimization over pipeline using trainset and
// metric per the given options.
type StrategyFn func(ctx context.Context, p *pipeline.Pipeline, trainset []eval.Example, opts Options) (OptimizationResult, error)

var registry = map[string]StrategyFn{
	"identity": identityStrategy,
	"random":   randomStrategy,
	"beam":     beamStrategy,
}

// CompileStrategy resolves a strategy by name; unknown names fail fast
// (spec §4.J: "unknown strategies fail fast").
func CompileStrategy(name string) (StrategyFn, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return fn, nil
}
