package tools

import (
	"context"
	"time"
)

// Tracer is the subset of tracesvc.Service used to thread a span around
// each tool call.
type Tracer interface {
	ToolCall(ctx context.Context, tool string, input any, permissions []string) string
	ToolResult(ctx context.Context, tool string, result any, durationMs int64, status string, toolErr error)
}

// Instrumented wraps a Client so every call emits a tool_call/tool_result
// pair through tr, independent of whether the underlying Client is a
// live adapter or a replay stub.
type Instrumented struct {
	inner Client
	specs *Registry
	tr    Tracer
}

// NewInstrumented wraps inner, looking up permissions from specs (which
// may be nil if the caller has no spec registry to consult).
func NewInstrumented(inner Client, specs *Registry, tr Tracer) *Instrumented {
	return &Instrumented{inner: inner, specs: specs, tr: tr}
}

// Call implements Client, emitting tool_call before and tool_result
// after delegating to the wrapped Client.
func (i *Instrumented) Call(ctx context.Context, name string, input any) (any, error) {
	var permissions []string
	if i.specs != nil {
		if spec, ok := i.specs.Spec(name); ok {
			permissions = spec.Permissions
		}
	}

	i.tr.ToolCall(ctx, name, input, permissions)
	start := time.Now()
	result, err := i.inner.Call(ctx, name, input)
	durationMs := time.Since(start).Milliseconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	i.tr.ToolResult(ctx, name, result, durationMs, status, err)
	return result, err
}
