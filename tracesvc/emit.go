package tracesvc

import (
	"context"

	"github.com/huap-project/huap-core/trace"
)

// NodeEnter pushes a span for node and emits node_enter. A no-op
// (returns "") when the service is idle.
func (s *Service) NodeEnter(ctx context.Context, node string, state any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return ""
	}
	_, id, _ := s.pushSpanLocked(ctx, "node:"+node)
	s.emitLocked(ctx, trace.KindNode, trace.NameNodeEnter, trace.NodeEnterData{
		Node:      node,
		StateHash: trace.ContentHash(state),
	}, id)
	return id
}

// NodeExit emits node_exit and pops the node's span.
func (s *Service) NodeExit(ctx context.Context, node string, output any, durationMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	id := s.currentSpanIDLocked()
	s.emitLocked(ctx, trace.KindNode, trace.NameNodeExit, trace.NodeExitData{
		Node:       node,
		Output:     output,
		OutputHash: trace.ContentHash(output),
		DurationMs: durationMs,
	}, id)
	s.popSpanLocked()
}

// ToolCall pushes a span for the tool invocation and emits tool_call.
func (s *Service) ToolCall(ctx context.Context, tool string, input any, permissions []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return ""
	}
	_, id, _ := s.pushSpanLocked(ctx, "tool:"+tool)
	s.emitLocked(ctx, trace.KindTool, trace.NameToolCall, trace.ToolCallData{
		Tool:        tool,
		InputHash:   trace.ContentHash(input),
		Input:       input,
		Permissions: permissions,
	}, id)
	return id
}

// ToolResult emits tool_result and pops the tool's span.
func (s *Service) ToolResult(ctx context.Context, tool string, result any, durationMs int64, status string, toolErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	id := s.currentSpanIDLocked()
	errMsg := ""
	if toolErr != nil {
		errMsg = toolErr.Error()
	}
	s.emitLocked(ctx, trace.KindTool, trace.NameToolResult, trace.ToolResultData{
		Tool:       tool,
		Result:     result,
		DurationMs: durationMs,
		Status:     status,
		Error:      errMsg,
	}, id)
	s.popSpanLocked()
}

// LLMRequest pushes a span for the LLM call and emits llm_request.
func (s *Service) LLMRequest(ctx context.Context, model string, messages []map[string]any, temperature float64, maxTokens int, provider string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return ""
	}
	_, id, _ := s.pushSpanLocked(ctx, "llm:"+model)

	var msgPayload any = messages
	if s.cfg.RedactLLMContent {
		msgPayload = trace.RedactMessages(messages)
	}
	s.emitLocked(ctx, trace.KindLLM, trace.NameLLMRequest, trace.LLMRequestData{
		Model:        model,
		MessagesHash: trace.ContentHash(messages),
		Messages:     msgPayload,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		Provider:     provider,
	}, id)
	return id
}

// LLMResponse emits llm_response, pops the LLM call's span, and emits an
// automatic cost_record using the configured per-token USD estimate.
func (s *Service) LLMResponse(ctx context.Context, model, text string, usage trace.Usage, durationMs int64, provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	id := s.currentSpanIDLocked()

	data := trace.LLMResponseData{
		Model: model, Usage: usage, DurationMs: durationMs, Provider: provider,
	}
	if s.cfg.RedactLLMContent {
		hash, length := trace.RedactText(text)
		data.TextHash, data.TextLength = hash, length
	} else {
		data.Text = text
	}
	s.emitLocked(ctx, trace.KindLLM, trace.NameLLMResponse, data, id)
	s.popSpanLocked()

	usd := float64(usage.PromptTokens)*s.cfg.USDPerPromptToken + float64(usage.CompletionTokens)*s.cfg.USDPerCompletionToken
	s.emitLocked(ctx, trace.KindCost, trace.NameCostRecord, trace.CostRecordData{
		USD:              usd,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		Source:           "llm_response",
	}, "")
}

// PolicyCheck emits a flat policy_check event; it does not manipulate
// the span stack.
func (s *Service) PolicyCheck(ctx context.Context, policy, decision, reason, ruleID string, inputs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.emitLocked(ctx, trace.KindPolicy, trace.NamePolicyCheck, trace.PolicyCheckData{
		Policy: policy, Decision: decision, Reason: reason, RuleID: ruleID, Inputs: inputs,
	}, "")
}

// Error emits a flat error event.
func (s *Service) Error(ctx context.Context, message, node, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.emitLocked(ctx, trace.KindSystem, trace.NameError, trace.ErrorData{
		Message: message, Node: node, Kind: kind,
	}, "")
}

// QualityRecord emits a flat quality_record event.
func (s *Service) QualityRecord(ctx context.Context, metric string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.emitLocked(ctx, trace.KindQuality, trace.NameQualityRecord, trace.QualityRecordData{
		Metric: metric, Value: value,
	}, "")
}

// MemoryPut/MemoryGet/MemorySearch emit the corresponding flat memory_*
// events; used by memory.Store wrappers that want operations reflected
// in the trace.
func (s *Service) MemoryPut(ctx context.Context, bank string, itemIDs []string) {
	s.emitMemoryOp(ctx, trace.NameMemoryPut, trace.MemoryOpData{Bank: bank, ItemIDs: itemIDs, Count: len(itemIDs)})
}

func (s *Service) MemoryGet(ctx context.Context, bank, query string, count int) {
	s.emitMemoryOp(ctx, trace.NameMemoryGet, trace.MemoryOpData{Bank: bank, Query: query, Count: count})
}

func (s *Service) MemorySearch(ctx context.Context, bank, query string, count int) {
	s.emitMemoryOp(ctx, trace.NameMemorySearch, trace.MemoryOpData{Bank: bank, Query: query, Count: count})
}

func (s *Service) emitMemoryOp(ctx context.Context, name trace.Name, data trace.MemoryOpData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.emitLocked(ctx, trace.KindMemory, name, data, "")
}

// ArtifactCreated emits a flat artifact_created event.
func (s *Service) ArtifactCreated(ctx context.Context, kind, path, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.emitLocked(ctx, trace.KindSystem, trace.NameArtifactCreate, trace.ArtifactCreatedData{
		Kind: kind, Path: path, Hash: hash,
	}, "")
}
