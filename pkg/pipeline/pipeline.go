// Package pipeline implements the DAG runtime of spec §4.F: stage graph
// compilation (dependency/cycle validation, batched topological plan) and
// batched concurrent execution.
//
// Grounded primarily on aladin2907-overhuman/internal/pipeline/dag.go's
// Kahn's-algorithm TopologicalOrder and ready-set executor; the
// indexed-result-then-sort collection idiom is lifted from
// pkg/queue/executor.go's collectAndSort.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codeready-toolchain/loom/pkg/async"
	"github.com/codeready-toolchain/loom/pkg/module"
)

// Stage is one node of the DAG: an id, the module it runs, and the ids of
// stages it depends on.
type Stage struct {
	ID      string
	Module  module.Module
	DepsOn  []string
}

// MissingDependencyError is spec §6's PipelineMissingDependency kind.
type MissingDependencyError struct {
	Missing []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("pipeline: missing dependencies: %v", e.Missing)
}

// CycleError is spec §6's PipelineCycle kind.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("pipeline: cycle detected among stages: %v", e.Remaining)
}

// ExecutionFailedError is spec §6's PipelineExecutionFailed kind.
type ExecutionFailedError struct {
	StageID string
	Cause   error
}

func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("pipeline: stage %q failed: %v", e.StageID, e.Cause)
}

func (e *ExecutionFailedError) Unwrap() error { return e.Cause }

// Pipeline is itself a Module (spec §3): its Call resolves stages in
// topological batches, merging dependency outputs into each stage's input.
type Pipeline struct {
	Metadata map[string]any
	stages   map[string]Stage
	batches  [][]string
}

var _ module.Module = (*Pipeline)(nil)

// Compile validates deps/cycles and computes the batched execution plan
// (spec §4.F compile). Stage ids must be unique. A duplicated id is not
// reported as such: the stage map keeps the last stage with that id, and
// topologicalBatches, which counts every listed stage, then fails with a
// CycleError whose Remaining list is empty.
func Compile(stages []Stage, metadata map[string]any) (*Pipeline, error) {
	byID := make(map[string]Stage, len(stages))
	for _, s := range stages {
		byID[s.ID] = s
	}

	var missing []string
	for _, s := range stages {
		for _, dep := range s.DepsOn {
			if _, ok := byID[dep]; !ok {
				missing = append(missing, dep)
			}
		}
	}
	if len(missing) > 0 {
		return nil, &MissingDependencyError{Missing: missing}
	}

	batches, err := topologicalBatches(stages)
	if err != nil {
		return nil, err
	}

	return &Pipeline{Metadata: metadata, stages: byID, batches: batches}, nil
}

// topologicalBatches groups stages into the maximal ready-sets of spec
// §4.F step 3, using the classic in-degree/children-adjacency (Kahn's
// algorithm) approach of aladin2907-overhuman/internal/pipeline/dag.go's
// TopologicalOrder, generalized to emit batches instead of a flat order.
func topologicalBatches(stages []Stage) ([][]string, error) {
	indegree := make(map[string]int, len(stages))
	children := make(map[string][]string, len(stages))
	for _, s := range stages {
		if _, ok := indegree[s.ID]; !ok {
			indegree[s.ID] = 0
		}
		for _, dep := range s.DepsOn {
			indegree[s.ID]++
			children[dep] = append(children[dep], s.ID)
		}
	}

	var batches [][]string
	remaining := len(stages)
	for remaining > 0 {
		var ready []string
		for id, deg := range indegree {
			if deg == 0 {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			var left []string
			for id := range indegree {
				left = append(left, id)
			}
			sort.Strings(left)
			return nil, &CycleError{Remaining: left}
		}
		sort.Strings(ready) // deterministic batch ordering for identical inputs
		batches = append(batches, ready)
		for _, id := range ready {
			delete(indegree, id)
			remaining--
			for _, child := range children[id] {
				indegree[child]--
			}
		}
	}
	return batches, nil
}

// Call executes the compiled batches in order: within a batch every stage
// runs concurrently via errgroup (first error cancels the rest, per spec
// §5); between batches execution is strictly sequential. Final result is
// merge(original_input, union(stage_outputs)) per spec §4.F. Pipeline
// implements module.Module, so it composes with everything else that
// does (spec §3: "Pipeline (itself a module)").
func (p *Pipeline) Call(ctx context.Context, input module.Map) *async.Future[module.Map] {
	out, resolve := async.NewFuture[module.Map]()
	go func() {
		v, err := p.run(ctx, input)
		resolve(v, err)
	}()
	return out
}

func (p *Pipeline) run(ctx context.Context, input module.Map) (module.Map, error) {
	outputs := make(map[string]module.Map, len(p.stages))
	var mu sync.Mutex

	for _, batch := range p.batches {
		grp, gctx := errgroup.WithContext(ctx)
		for _, id := range batch {
			id := id
			stage := p.stages[id]
			grp.Go(func() error {
				stageInput := mergeInputs(input, stage.DepsOn, outputs, &mu)
				out, err := stage.Module.Call(gctx, stageInput).Await(gctx)
				if err != nil {
					return &ExecutionFailedError{StageID: id, Cause: err}
				}
				mu.Lock()
				outputs[id] = out
				mu.Unlock()
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			return nil, err
		}
	}

	result := module.Map{}
	for k, v := range input {
		result[k] = v
	}
	for _, out := range outputs {
		for k, v := range out {
			result[k] = v
		}
	}
	return result, nil
}

// Snapshot returns a serializable summary of the compiled plan (stage
// ids, their dependencies, and metadata) — enough for pkg/storage to
// persist and later recognize a pipeline across a resume, since the
// Module values themselves carry no stable identity to serialize.
func (p *Pipeline) Snapshot() map[string]any {
	ids := make([]string, 0, len(p.stages))
	for id := range p.stages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stageSummaries := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		stageSummaries = append(stageSummaries, map[string]any{
			"id":      id,
			"deps_on": p.stages[id].DepsOn,
		})
	}
	return map[string]any{
		"metadata": p.Metadata,
		"stages":   stageSummaries,
	}
}

func mergeInputs(original module.Map, deps []string, outputs map[string]module.Map, mu *sync.Mutex) module.Map {
	merged := module.Map{}
	for k, v := range original {
		merged[k] = v
	}
	mu.Lock()
	for _, dep := range deps {
		for k, v := range outputs[dep] {
			merged[k] = v
		}
	}
	mu.Unlock()
	return merged
}
