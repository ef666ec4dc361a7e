// Package signature implements the typed input/output contracts modules
// validate against (spec §4.A). A Signature is an ordered pair of field
// lists; each field carries an optional JSON-Schema fragment, defaulting
// to "any scalar" when unspecified.
package signature

import "sync"

// Field is one named, optionally-schema-constrained slot on a Signature.
type Field struct {
	Name   string
	Schema map[string]any // JSON-Schema fragment; nil means "any scalar".
}

// Signature is immutable once constructed; derivation (e.g. Chain-of-
// Thought inserting a rationale field) always produces a new value rather
// than mutating an existing one.
type Signature struct {
	Name    string
	Inputs  []Field
	Outputs []Field
}

// InputNames and OutputNames return the ordered field names on each side.
func (s Signature) InputNames() []string  { return fieldNames(s.Inputs) }
func (s Signature) OutputNames() []string { return fieldNames(s.Outputs) }

func fieldNames(fs []Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

// WithOutput returns a copy of s with an additional output field inserted
// before the existing outputs (used by Chain-of-Thought to derive rationale-carrying signatures; the
// original Signature is never mutated).
func (s Signature) WithOutput(f Field) Signature {
	outs := make([]Field, 0, len(s.Outputs)+1)
	outs = append(outs, f)
	outs = append(outs, s.Outputs...)
	return Signature{Name: s.Name, Inputs: s.Inputs, Outputs: outs}
}

// Registry is the process-wide, name-keyed signature store. The pattern —
// RWMutex guarding a plain map, defensive copies returned to callers — is
// lifted from pkg/config/llm.go's LLMProviderRegistry.
type Registry struct {
	mu   sync.RWMutex
	sigs map[string]Signature
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sigs: make(map[string]Signature)}
}

// Define registers sig under name, idempotently — a later call with the
// same name overwrites the earlier definition (spec §4.A, §8 idempotence:
// "signature redefinition under the same name yields a schema equivalent
// to the latest inputs").
func (r *Registry) Define(name string, inputs, outputs []Field) Signature {
	sig := Signature{Name: name, Inputs: inputs, Outputs: outputs}
	r.mu.Lock()
	r.sigs[name] = sig
	r.mu.Unlock()
	return sig
}

// Get looks up a previously defined signature by name.
func (r *Registry) Get(name string) (Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sig, ok := r.sigs[name]
	return sig, ok
}

// Reset clears all definitions; exposed only for tests, per spec §9
// ("Global tool & signature registries ... expose only reset for tests").
func (r *Registry) Reset() {
	r.mu.Lock()
	r.sigs = make(map[string]Signature)
	r.mu.Unlock()
}

// DefaultRegistry is the process-wide registry most callers use directly,
// mirroring the single global var the source macro produced (spec §9).
var DefaultRegistry = NewRegistry()
