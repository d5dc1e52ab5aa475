package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/huap-project/huap-core/tools"
	"github.com/huap-project/huap-core/tracesvc"
)

// missRecorder collects stub-miss keys across both stub clients for a
// single replay, so the final Result can surface them without aborting
// the run (spec.md §4.4 failure semantics).
type missRecorder struct {
	mu     sync.Mutex
	misses []string
}

func (m *missRecorder) record(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses = append(m.misses, key)
}

func (m *missRecorder) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.misses))
	copy(out, m.misses)
	return out
}

// StubToolClient implements tools.Client by consulting a StubRegistry.
// On a miss it either falls through to Fallback (when set) or returns
// ErrStubMiss, per spec.md §4.4: "individual stub misses ... do not
// abort unless the shim is configured with no fall-through."
type StubToolClient struct {
	Registry *StubRegistry
	Fallback tools.Client
	misses   *missRecorder
}

var _ tools.Client = (*StubToolClient)(nil)

// Call implements tools.Client.
func (c *StubToolClient) Call(ctx context.Context, name string, input any) (any, error) {
	stub, ok := c.Registry.LookupTool(name, input)
	if ok {
		if stub.Error != "" {
			return stub.Result, errors.New(stub.Error)
		}
		return stub.Result, nil
	}
	if c.misses != nil {
		c.misses.record("tool:" + name)
	}
	if c.Fallback != nil {
		return c.Fallback.Call(ctx, name, input)
	}
	return nil, fmt.Errorf("%w: tool %q", ErrStubMiss, name)
}

// StubLLMClient implements tracesvc.LLMClient by consulting a
// StubRegistry, with the same fall-through semantics as StubToolClient.
type StubLLMClient struct {
	Registry *StubRegistry
	Fallback tracesvc.LLMClient
	misses   *missRecorder
}

var _ tracesvc.LLMClient = (*StubLLMClient)(nil)

// Complete implements tracesvc.LLMClient.
func (c *StubLLMClient) Complete(ctx context.Context, req tracesvc.LLMRequest) (tracesvc.LLMResult, error) {
	stub, ok := c.Registry.LookupLLM(req.Model, req.Messages)
	if ok {
		return tracesvc.LLMResult{Text: stub.Text, Usage: stub.Usage}, nil
	}
	if c.misses != nil {
		c.misses.record("llm:" + req.Model)
	}
	if c.Fallback != nil {
		return c.Fallback.Complete(ctx, req)
	}
	return tracesvc.LLMResult{}, fmt.Errorf("%w: model %q", ErrStubMiss, req.Model)
}
