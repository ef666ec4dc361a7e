package optimize

import (
	"context"

	"github.com/codeready-toolchain/loom/pkg/eval"
	"github.com/codeready-toolchain/loom/pkg/pipeline"
)

// randomStrategy is a SPEC_FULL.md-supplemented strategy: the same
// evaluate-then-rank skeleton as beamStrategy, but with beam_width
// forced to 1 so each iteration keeps whichever single mutation of
// the current best scored highest, independent of the others. It
// exists to give a cheap alternative to beam search for quick
// smoke-testing a pipeline's mutators.
func randomStrategy(ctx context.Context, initial *pipeline.Pipeline, trainset []eval.Example, opts Options) (OptimizationResult, error) {
	opts.BeamWidth = 1
	return beamStrategy(ctx, initial, trainset, opts)
}
