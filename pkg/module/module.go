// Package module implements the polymorphic Module capability of spec
// §4.E: a uniform call(input_map) -> future<output_map>, with function,
// sequential-composition, and parallel-composition variants.
//
// Grounded on pkg/agent/agent.go's Agent.Execute shape, generalized from a
// single fixed-signature execution method to the map-in/map-out capability
// every module (including reasoning modules and Pipeline) implements.
package module

import (
	"context"

	"github.com/codeready-toolchain/loom/pkg/async"
	"github.com/codeready-toolchain/loom/pkg/signature"
)

// Map is the input/output value carried between modules.
type Map map[string]any

// Module is the single capability every composable unit exposes.
type Module interface {
	Call(ctx context.Context, input Map) *async.Future[Map]
}

// Func adapts a plain function into the Module interface, the "wraps a
// pure mapping" function-module variant of spec §4.E.
type Func func(ctx context.Context, input Map) (Map, error)

func (f Func) Call(ctx context.Context, input Map) *async.Future[Map] {
	out, resolve := async.NewFuture[Map]()
	go func() {
		v, err := f(ctx, input)
		resolve(v, err)
	}()
	return out
}

// functionModule wraps f with optional signature-validated input. When sig
// is non-nil, Call validates input against sig.Inputs before invoking f;
// a failure short-circuits with a SignatureValidation-kind error.
type functionModule struct {
	f   func(ctx context.Context, input Map) (Map, error)
	sig *signature.Signature
}

// NewFunctionModule builds a function-module, optionally signature-checked
// (spec §4.E: "optional signature enforces validation").
func NewFunctionModule(f func(ctx context.Context, input Map) (Map, error), sig *signature.Signature) Module {
	return &functionModule{f: f, sig: sig}
}

func (m *functionModule) Call(ctx context.Context, input Map) *async.Future[Map] {
	out, resolve := async.NewFuture[Map]()
	go func() {
		if m.sig != nil {
			d := signature.ExplainInput(*m.sig, input)
			if !d.Valid {
				resolve(nil, &signature.ValidationError{
					Signature: m.sig.Name,
					Side:      "input",
					Field:     firstField(d),
					Reason:    "input failed signature validation",
				})
				return
			}
		}
		v, err := m.f(ctx, input)
		resolve(v, err)
	}()
	return out
}

func firstField(d signature.Diagnosis) string {
	if len(d.Issues) == 0 {
		return ""
	}
	return d.Issues[0].Field
}

// Compose chains a's output into b's input: a.call |> chain(b.call),
// spec §4.E's sequential composition.
func Compose(a, b Module) Module {
	return Func(func(ctx context.Context, input Map) (Map, error) {
		mid, err := a.Call(ctx, input).Await(ctx)
		if err != nil {
			return nil, err
		}
		return b.Call(ctx, mid).Await(ctx)
	})
}

// Parallel fans identical input out to every module, then merges the
// output maps. Key collisions resolve last-writer-wins by module order —
// a documented convention, not an error (spec §4.E, §9).
func Parallel(modules ...Module) Module {
	return Func(func(ctx context.Context, input Map) (Map, error) {
		futures := make([]*async.Future[Map], len(modules))
		for i, m := range modules {
			futures[i] = m.Call(ctx, input)
		}
		maps, err := async.Zip(futures).Await(ctx)
		if err != nil {
			return nil, err
		}
		merged := Map{}
		for _, m := range maps {
			for k, v := range m {
				merged[k] = v
			}
		}
		return merged, nil
	})
}
