// Package tool implements the typed tool contract, registry, and
// invocation flow of spec §4.G: register/unregister/list/get_all, a
// per-call ToolContext binding, and invoke_tool with validate/timeout/
// validate wrapping.
//
// Registry pattern grounded on pkg/config/llm.go's LLMProviderRegistry;
// the invoke flow (resolve -> call -> convert -> wrap result) grounded on
// pkg/mcp/executor.go's Execute, adapted from MCP server/tool-name
// resolution to a flat, process-wide name lookup.
package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/codeready-toolchain/loom/pkg/async"
)

// Tool is the typed capability of spec §3/§4.G.
type Tool struct {
	Name         string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
	Invoke       func(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Registry is the process-wide name->Tool map.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or overwrites a tool by name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	r.tools[t.Name] = t
	r.mu.Unlock()
}

// Unregister removes a tool by name; a no-op if absent.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.tools, name)
	r.mu.Unlock()
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	return names
}

// GetAll returns a defensive copy of the full name->Tool map, the same
// copy-on-read contract as pkg/config/llm.go's GetAll.
func (r *Registry) GetAll() map[string]Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Tool, len(r.tools))
	for k, v := range r.tools {
		out[k] = v
	}
	return out
}

// Context is a per-call binding of a subset of tools, looked up by name
// (spec §4.G: "ToolContext(tools | list_of_tools)").
type Context struct {
	tools    map[string]Tool
	Metadata map[string]any
}

// NewContext builds a ToolContext from an explicit tool list.
func NewContext(tools []Tool, metadata map[string]any) *Context {
	m := make(map[string]Tool, len(tools))
	for _, t := range tools {
		m[t.Name] = t
	}
	return &Context{tools: m, Metadata: metadata}
}

// NewContextFromRegistry binds every tool currently in r.
func NewContextFromRegistry(r *Registry, metadata map[string]any) *Context {
	all := r.GetAll()
	tools := make([]Tool, 0, len(all))
	for _, t := range all {
		tools = append(tools, t)
	}
	return NewContext(tools, metadata)
}

// Lookup finds a tool by name inside this context.
func (c *Context) Lookup(name string) (Tool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// All returns every tool bound into this context.
func (c *Context) All() []Tool {
	out := make([]Tool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t)
	}
	return out
}

// ErrToolNotFound is spec §6's ToolNotFound kind.
var ErrToolNotFound = fmt.Errorf("tool: not found")

// InputInvalidError is spec §6's ToolInputInvalid kind.
type InputInvalidError struct {
	Name    string
	Explain string
}

func (e *InputInvalidError) Error() string {
	return fmt.Sprintf("tool %q: invalid input: %s", e.Name, e.Explain)
}

// OutputInvalidError is spec §6's ToolOutputInvalid kind.
type OutputInvalidError struct {
	Name    string
	Explain string
}

func (e *OutputInvalidError) Error() string {
	return fmt.Sprintf("tool %q: invalid output: %s", e.Name, e.Explain)
}

// ExecutionFailedError is spec §6's ToolExecutionFailed kind.
type ExecutionFailedError struct {
	Name  string
	Cause error
}

func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("tool %q: execution failed: %v", e.Name, e.Cause)
}

func (e *ExecutionFailedError) Unwrap() error { return e.Cause }

// InvokeOptions configures InvokeTool. TimeoutMs distinguishes "unset" from
// an explicit zero: a negative value means "use the default", 0 is a
// deliberate request for an immediate Timeout failure (spec §8's boundary
// case), and a positive value is taken literally.
type InvokeOptions struct {
	ValidateInput  bool
	ValidateOutput bool
	TimeoutMs      int
}

// DefaultInvokeOptions matches spec §4.G's defaults.
func DefaultInvokeOptions() InvokeOptions {
	return InvokeOptions{ValidateInput: true, ValidateOutput: true, TimeoutMs: 30000}
}

// InvokeTool runs t.Invoke with the validate/timeout/validate wrapping of
// spec §4.G. The monitored variant, InvokeToolMonitored in stats.go, also
// updates a Stats tracker's counters.
func InvokeTool(ctx context.Context, t Tool, input map[string]any, opts InvokeOptions) (map[string]any, error) {
	if opts.ValidateInput {
		if ok, explain := validateAgainst(t.InputSchema, input); !ok {
			return nil, &InputInvalidError{Name: t.Name, Explain: explain}
		}
	}

	timeoutMs := opts.TimeoutMs
	if timeoutMs < 0 {
		timeoutMs = 30000
	}
	if timeoutMs == 0 {
		// An explicit zero timeout has already elapsed: fail without
		// racing the invocation against a zero-delay timer.
		return nil, &ExecutionFailedError{Name: t.Name, Cause: async.ErrTimeout}
	}
	f := async.In(0, func() (map[string]any, error) { return t.Invoke(ctx, input) })
	out, err := async.Timeout(f, msToDuration(timeoutMs)).Await(ctx)
	if err != nil {
		return nil, &ExecutionFailedError{Name: t.Name, Cause: err}
	}

	if opts.ValidateOutput {
		if ok, explain := validateAgainst(t.OutputSchema, out); !ok {
			return nil, &OutputInvalidError{Name: t.Name, Explain: explain}
		}
	}
	return out, nil
}
