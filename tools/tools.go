// Package tools provides the tool-invocation capability the graph
// executor and replayer instrument around: a duck-typed Client interface
// (spec.md §4.3/§4.4), a Registry of named tools, and a trace-
// instrumented wrapper that emits tool_call/tool_result pairs.
//
// Grounded on the provider/executor duck-typed call-and-result shim in
// runtime/toolregistry/provider and runtime/toolregistry/executor,
// narrowed from their Pulse-stream transport down to the single
// in-process interface the replayer needs to intercept (spec.md
// NON-GOALS: single-process, no distributed coordination).
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type (
	// Spec describes a registered tool for discovery and documentation
	// purposes; it carries no behavior of its own.
	Spec struct {
		Name        string
		Description string
		Permissions []string
	}

	// Client executes a single tool call and returns its result. Both
	// live adapters and replay stubs implement this interface.
	Client interface {
		Call(ctx context.Context, name string, input any) (any, error)
	}

	// ClientFunc adapts a function to Client.
	ClientFunc func(ctx context.Context, name string, input any) (any, error)
)

// Call implements Client.
func (f ClientFunc) Call(ctx context.Context, name string, input any) (any, error) {
	return f(ctx, name, input)
}

// Registry holds named tool implementations and their specs.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
	specs   map[string]Spec
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client), specs: make(map[string]Spec)}
}

// Register associates name with a Client implementation and its Spec.
// Re-registering an existing name replaces it.
func (r *Registry) Register(spec Spec, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[spec.Name] = client
	r.specs[spec.Name] = spec
}

// Spec returns the spec registered for name.
func (r *Registry) Spec(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	return s, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Call dispatches name to its registered Client. Returns an error if
// name has no registered implementation.
func (r *Registry) Call(ctx context.Context, name string, input any) (any, error) {
	r.mu.RLock()
	c, ok := r.clients[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tools: no client registered for %q", name)
	}
	return c.Call(ctx, name, input)
}
