package optimize

import "github.com/codeready-toolchain/loom/pkg/pipeline"

// Mutator generates candidate pipelines from a beam member. The engine
// treats mutators as opaque Pipeline -> []Pipeline functions (spec
// §4.J step 3a); concrete mutation strategies (demonstration sampling,
// instruction rewriting) are left pluggable.
type Mutator func(*pipeline.Pipeline) []*pipeline.Pipeline

// IdentityMutator returns the member unchanged as its own sole
// candidate. It is the default mutator, used when Options.Mutator is
// nil.
func IdentityMutator(p *pipeline.Pipeline) []*pipeline.Pipeline {
	return []*pipeline.Pipeline{p}
}
