package differ

import (
	"testing"

	"github.com/huap-project/huap-core/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareIdenticalRunsIsInfo(t *testing.T) {
	runID := trace.NewRunID()
	events := []*trace.Event{
		{V: trace.SchemaVersion, RunID: runID, SpanID: trace.NewSpanID(), Name: trace.NameRunStart},
		{V: trace.SchemaVersion, RunID: runID, SpanID: trace.NewSpanID(), Name: trace.NameNodeEnter, Data: trace.MarshalData(trace.NodeEnterData{Node: "a"})},
		{V: trace.SchemaVersion, RunID: runID, SpanID: trace.NewSpanID(), Name: trace.NameNodeExit, Data: trace.MarshalData(trace.NodeExitData{Node: "a", Output: map[string]any{"x": 1}})},
		{V: trace.SchemaVersion, RunID: runID, SpanID: trace.NewSpanID(), Name: trace.NameRunEnd},
	}
	run := trace.BuildRun(events)
	require.NoError(t, run.Validate())

	d := Compare(run, run, Policy{})
	assert.Equal(t, VerdictInfo, d.Verdict)
	for _, ev := range d.Events {
		assert.Equal(t, "unchanged", ev.Status)
	}
}

func TestCompareDetectsFieldChange(t *testing.T) {
	runIDBase := trace.NewRunID()
	runIDCand := trace.NewRunID()
	base := trace.BuildRun([]*trace.Event{
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameRunStart},
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameNodeExit, Data: trace.MarshalData(trace.NodeExitData{Node: "a", Output: map[string]any{"x": 1}})},
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameRunEnd},
	})
	cand := trace.BuildRun([]*trace.Event{
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameRunStart},
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameNodeExit, Data: trace.MarshalData(trace.NodeExitData{Node: "a", Output: map[string]any{"x": 2}})},
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameRunEnd},
	})

	d := Compare(base, cand, Policy{})
	var found bool
	for _, ev := range d.Events {
		if ev.Name == trace.NameNodeExit && ev.Status == "changed" {
			found = true
			assert.NotEmpty(t, ev.Changes)
		}
	}
	assert.True(t, found)
}

func TestCompareNewErrorEventFails(t *testing.T) {
	runIDBase := trace.NewRunID()
	runIDCand := trace.NewRunID()
	base := trace.BuildRun([]*trace.Event{
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameRunStart},
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameRunEnd},
	})
	cand := trace.BuildRun([]*trace.Event{
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameRunStart},
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameError, Data: trace.MarshalData(trace.ErrorData{Message: "boom"})},
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameRunEnd},
	})

	d := Compare(base, cand, Policy{})
	assert.Equal(t, VerdictFail, d.Verdict)
	assert.NotEmpty(t, d.Reasons)
}

func TestCompareToolDriftingToErrorFails(t *testing.T) {
	runIDBase := trace.NewRunID()
	runIDCand := trace.NewRunID()
	base := trace.BuildRun([]*trace.Event{
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameRunStart},
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameToolResult, Data: trace.MarshalData(trace.ToolResultData{Tool: "X", Status: "success"})},
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameRunEnd},
	})
	cand := trace.BuildRun([]*trace.Event{
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameRunStart},
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameToolResult, Data: trace.MarshalData(trace.ToolResultData{Tool: "X", Status: "error", Error: "timeout"})},
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameRunEnd},
	})

	d := Compare(base, cand, Policy{})
	assert.Equal(t, VerdictFail, d.Verdict)
	assert.Equal(t, []string{"new error in tool X"}, d.Reasons)
	assert.Equal(t, []string{"X"}, d.Quality.NewlyErroredTools)
}

func TestCompareEphemeralFieldsIgnored(t *testing.T) {
	runIDBase := trace.NewRunID()
	runIDCand := trace.NewRunID()
	base := trace.BuildRun([]*trace.Event{
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameRunStart},
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameNodeExit, Data: trace.MarshalData(trace.NodeExitData{Node: "a", DurationMs: 10})},
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameRunEnd},
	})
	cand := trace.BuildRun([]*trace.Event{
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameRunStart},
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameNodeExit, Data: trace.MarshalData(trace.NodeExitData{Node: "a", DurationMs: 9999})},
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameRunEnd},
	})

	d := Compare(base, cand, Policy{})
	for _, ev := range d.Events {
		if ev.Name == trace.NameNodeExit {
			assert.Equal(t, "unchanged", ev.Status)
		}
	}
}

func TestToMarkdownIncludesVerdictAndReasons(t *testing.T) {
	runIDBase := trace.NewRunID()
	runIDCand := trace.NewRunID()
	base := trace.BuildRun([]*trace.Event{
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameRunStart},
		{V: trace.SchemaVersion, RunID: runIDBase, SpanID: trace.NewSpanID(), Name: trace.NameRunEnd},
	})
	cand := trace.BuildRun([]*trace.Event{
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameRunStart},
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameError, Data: trace.MarshalData(trace.ErrorData{Message: "boom"})},
		{V: trace.SchemaVersion, RunID: runIDCand, SpanID: trace.NewSpanID(), Name: trace.NameRunEnd},
	})
	d := Compare(base, cand, Policy{})
	md := d.ToMarkdown()
	assert.Contains(t, md, "FAIL")
	assert.Contains(t, md, "Regressions")
}
