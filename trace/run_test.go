package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helloEvents(runID string) []*Event {
	now := time.Now().UTC()
	startSpan, greetSpan, endSpan := NewSpanID(), NewSpanID(), NewSpanID()
	return []*Event{
		{V: SchemaVersion, Timestamp: now, RunID: runID, SpanID: NewSpanID(), Kind: KindLifecycle, Name: NameRunStart, Data: MarshalData(RunStartData{Pod: "hello", Input: map[string]any{"message": "hi"}})},
		{V: SchemaVersion, Timestamp: now, RunID: runID, SpanID: startSpan, Kind: KindNode, Name: NameNodeEnter, Data: MarshalData(NodeEnterData{Node: "start"})},
		{V: SchemaVersion, Timestamp: now, RunID: runID, SpanID: startSpan, Kind: KindNode, Name: NameNodeExit, Data: MarshalData(NodeExitData{Node: "start", Output: map[string]any{"echoed": "hi"}})},
		{V: SchemaVersion, Timestamp: now, RunID: runID, SpanID: greetSpan, Kind: KindNode, Name: NameNodeEnter, Data: MarshalData(NodeEnterData{Node: "greet"})},
		{V: SchemaVersion, Timestamp: now, RunID: runID, SpanID: greetSpan, Kind: KindNode, Name: NameNodeExit, Data: MarshalData(NodeExitData{Node: "greet", Output: map[string]any{"greeting": "Hello, hi!"}})},
		{V: SchemaVersion, Timestamp: now, RunID: runID, SpanID: endSpan, Kind: KindNode, Name: NameNodeEnter, Data: MarshalData(NodeEnterData{Node: "end"})},
		{V: SchemaVersion, Timestamp: now, RunID: runID, SpanID: endSpan, Kind: KindNode, Name: NameNodeExit, Data: MarshalData(NodeExitData{Node: "end", Output: map[string]any{"status": "complete"}})},
		{V: SchemaVersion, Timestamp: now, RunID: runID, SpanID: NewSpanID(), Kind: KindLifecycle, Name: NameRunEnd, Data: MarshalData(RunEndData{Status: "success"})},
	}
}

func TestBuildRunAndValidateHelloTrace(t *testing.T) {
	runID := NewRunID()
	run := BuildRun(helloEvents(runID))
	require.NoError(t, run.Validate())
	assert.NotNil(t, run.RunStart)
	assert.NotNil(t, run.RunEnd)
	assert.False(t, run.Interrupted())
	assert.Empty(t, run.Errors)
}

func TestValidateRejectsMismatchedRunID(t *testing.T) {
	runID := NewRunID()
	events := helloEvents(runID)
	events[2].RunID = "run_other00000"
	run := BuildRun(events)
	assert.Error(t, run.Validate())
}

func TestValidateRejectsMissingRunEnd(t *testing.T) {
	runID := NewRunID()
	events := helloEvents(runID)
	events = events[:len(events)-1]
	run := BuildRun(events)
	assert.True(t, run.Interrupted())
	assert.Error(t, run.Validate())
}

func TestValidateRejectsUnpairedToolCall(t *testing.T) {
	runID := NewRunID()
	events := helloEvents(runID)
	span := NewSpanID()
	events = append(events[:1], append([]*Event{{
		V: SchemaVersion, RunID: runID, SpanID: span, Kind: KindTool, Name: NameToolCall,
		Data: MarshalData(ToolCallData{Tool: "x"}),
	}}, events[1:]...)...)
	run := BuildRun(events)
	assert.Error(t, run.Validate())
}

func TestCostSummaryAggregation(t *testing.T) {
	runID := NewRunID()
	span := NewSpanID()
	events := []*Event{
		{V: SchemaVersion, RunID: runID, SpanID: NewSpanID(), Name: NameRunStart},
		{V: SchemaVersion, RunID: runID, SpanID: span, Name: NameLLMRequest, Data: MarshalData(LLMRequestData{Model: "m", Provider: "p"})},
		{V: SchemaVersion, RunID: runID, SpanID: span, Name: NameLLMResponse, Data: MarshalData(LLMResponseData{Model: "m", Usage: Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, DurationMs: 200})},
		{V: SchemaVersion, RunID: runID, SpanID: NewSpanID(), Name: NameCostRecord, Data: MarshalData(CostRecordData{USD: 0.001})},
		{V: SchemaVersion, RunID: runID, SpanID: NewSpanID(), Name: NameRunEnd},
	}
	run := BuildRun(events)
	require.NoError(t, run.Validate())
	assert.Equal(t, 15, run.Cost.TotalTokens)
	assert.Equal(t, 1, run.Cost.LLMCallCount)
	assert.InDelta(t, 0.001, run.Cost.EstimatedUSD, 1e-9)
}
