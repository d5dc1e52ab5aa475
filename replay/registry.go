// Package replay reconstructs a lookup structure from a recorded trace
// and re-drives a workflow with recorded responses substituted for live
// LLM/tool calls (spec.md §4.4), grounded on the duck-typed call-
// interception shims in runtime/toolregistry/provider and runtime/mcp,
// expressed here as the tools.Client / tracesvc.LLMClient Go interfaces.
package replay

import (
	"errors"
	"sync"

	"github.com/huap-project/huap-core/trace"
)

// ErrStubMiss is returned (wrapped) when neither the hash index nor the
// sequence fallback has a recorded response for a call (spec.md §4.4).
var ErrStubMiss = errors.New("replay: stub miss")

type (
	// ToolStub is a recorded tool_call/tool_result pair.
	ToolStub struct {
		Result     any
		DurationMs int64
		Status     string
		Error      string
	}

	// LLMStub is a recorded llm_request/llm_response pair.
	LLMStub struct {
		Text       string
		Usage      trace.Usage
		DurationMs int64
	}

	// StubRegistry indexes a recorded trace.Run's effectful calls by
	// content hash, with an opt-in per-key sequence fallback for traces
	// recorded before hashes were attached to every call (spec.md §4.4,
	// §9 Open Questions).
	StubRegistry struct {
		mu sync.Mutex

		// AllowSequenceFallback gates the legacy "next unconsumed stub"
		// lookup. Disabled by default: the hash index is the only
		// correctness-preserving lookup path.
		AllowSequenceFallback bool

		toolByHash map[string]ToolStub // "tool:hash"
		llmByHash  map[string]LLMStub  // "model:hash"

		toolSeq    map[string][]ToolStub
		toolSeqPos map[string]int
		llmSeq     []LLMStub
		llmSeqPos  int
	}
)

// NewStubRegistry constructs an empty registry.
func NewStubRegistry() *StubRegistry {
	return &StubRegistry{
		toolByHash: make(map[string]ToolStub),
		llmByHash:  make(map[string]LLMStub),
		toolSeq:    make(map[string][]ToolStub),
		toolSeqPos: make(map[string]int),
	}
}

// BuildStubRegistry walks run's events in order, pairing each tool_call
// with the next tool_result sharing its span_id and each llm_request
// with its llm_response, indexing both under a hash key and appending to
// the per-key sequence fallback lists (spec.md §4.4 registry
// construction).
func BuildStubRegistry(run *trace.Run) *StubRegistry {
	reg := NewStubRegistry()

	pendingToolCall := map[string]trace.ToolCallData{}
	pendingLLMReq := map[string]trace.LLMRequestData{}

	for _, e := range run.Events {
		switch e.Name {
		case trace.NameToolCall:
			var d trace.ToolCallData
			_ = e.UnmarshalData(&d)
			pendingToolCall[e.SpanID] = d
		case trace.NameToolResult:
			var d trace.ToolResultData
			_ = e.UnmarshalData(&d)
			call, ok := pendingToolCall[e.SpanID]
			if !ok {
				continue
			}
			delete(pendingToolCall, e.SpanID)
			hash := call.InputHash
			if hash == "" {
				hash = trace.ContentHash(call.Input)
			}
			stub := ToolStub{Result: d.Result, DurationMs: d.DurationMs, Status: d.Status, Error: d.Error}
			reg.toolByHash[call.Tool+":"+hash] = stub
			reg.toolSeq[call.Tool] = append(reg.toolSeq[call.Tool], stub)
		case trace.NameLLMRequest:
			var d trace.LLMRequestData
			_ = e.UnmarshalData(&d)
			pendingLLMReq[e.SpanID] = d
		case trace.NameLLMResponse:
			var d trace.LLMResponseData
			_ = e.UnmarshalData(&d)
			req, ok := pendingLLMReq[e.SpanID]
			if !ok {
				continue
			}
			delete(pendingLLMReq, e.SpanID)
			hash := req.MessagesHash
			if hash == "" {
				hash = trace.ContentHash(req.Messages)
			}
			stub := LLMStub{Text: d.Text, Usage: d.Usage, DurationMs: d.DurationMs}
			reg.llmByHash[req.Model+":"+hash] = stub
			reg.llmSeq = append(reg.llmSeq, stub)
		}
	}
	return reg
}

// LookupTool resolves a stub for a live tool call by content hash of
// input, falling back to the per-tool sequence list when
// AllowSequenceFallback is enabled.
func (r *StubRegistry) LookupTool(tool string, input any) (ToolStub, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash := trace.ContentHash(input)
	if stub, ok := r.toolByHash[tool+":"+hash]; ok {
		return stub, true
	}
	if !r.AllowSequenceFallback {
		return ToolStub{}, false
	}
	seq := r.toolSeq[tool]
	pos := r.toolSeqPos[tool]
	if pos >= len(seq) {
		return ToolStub{}, false
	}
	r.toolSeqPos[tool] = pos + 1
	return seq[pos], true
}

// LookupLLM resolves a stub for a live LLM call by content hash of the
// messages list, falling back to the global LLM sequence list when
// AllowSequenceFallback is enabled.
func (r *StubRegistry) LookupLLM(model string, messages []map[string]any) (LLMStub, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash := trace.ContentHash(messages)
	if stub, ok := r.llmByHash[model+":"+hash]; ok {
		return stub, true
	}
	if !r.AllowSequenceFallback {
		return LLMStub{}, false
	}
	if r.llmSeqPos >= len(r.llmSeq) {
		return LLMStub{}, false
	}
	stub := r.llmSeq[r.llmSeqPos]
	r.llmSeqPos++
	return stub, true
}
