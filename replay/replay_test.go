package replay

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/huap-project/huap-core/graph"
	"github.com/huap-project/huap-core/tools"
	"github.com/huap-project/huap-core/trace"
	"github.com/huap-project/huap-core/tracesvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordOriginalRun(t *testing.T, dir string) *trace.Run {
	t.Helper()
	ctx := context.Background()
	svc := tracesvc.New(tracesvc.Config{OutputDir: dir})
	path := filepath.Join(dir, "original.trace.jsonl")
	_, err := svc.StartRun(ctx, tracesvc.StartRunOptions{Pod: "search_pod", Input: map[string]any{"q": "go"}, TracePath: path})
	require.NoError(t, err)

	svc.NodeEnter(ctx, "search_pod_start", nil)
	id := svc.ToolCall(ctx, "search", map[string]any{"q": "go"}, nil)
	_ = id
	svc.ToolResult(ctx, "search", map[string]any{"hits": 3}, 5, "success", nil)
	svc.LLMRequest(ctx, "gpt", []map[string]any{{"role": "user", "content": "go"}}, 0, 0, "openai")
	svc.LLMResponse(ctx, "gpt", "three hits", trace.Usage{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6}, 50, "openai")
	svc.NodeExit(ctx, "search_pod_start", map[string]any{"hits": 3}, 10)

	svc.EndRun(ctx, "success", map[string]any{"hits": 3}, nil)

	events, err := trace.ReadFile(path)
	require.NoError(t, err)
	run := trace.BuildRun(events)
	require.NoError(t, run.Validate())
	return run
}

func TestBuildStubRegistryIndexesByHash(t *testing.T) {
	dir := t.TempDir()
	run := recordOriginalRun(t, dir)
	reg := BuildStubRegistry(run)

	stub, ok := reg.LookupTool("search", map[string]any{"q": "go"})
	require.True(t, ok)
	assert.Equal(t, "success", stub.Status)

	llmStub, ok := reg.LookupLLM("gpt", []map[string]any{{"role": "user", "content": "go"}})
	require.True(t, ok)
	assert.Equal(t, "three hits", llmStub.Text)
}

func TestLookupMissWithoutSequenceFallback(t *testing.T) {
	dir := t.TempDir()
	run := recordOriginalRun(t, dir)
	reg := BuildStubRegistry(run)

	_, ok := reg.LookupTool("search", map[string]any{"q": "different"})
	assert.False(t, ok)
}

func TestSequenceFallbackOptIn(t *testing.T) {
	dir := t.TempDir()
	run := recordOriginalRun(t, dir)
	reg := BuildStubRegistry(run)
	reg.AllowSequenceFallback = true

	stub, ok := reg.LookupTool("search", map[string]any{"q": "different"})
	require.True(t, ok)
	assert.Equal(t, "success", stub.Status)
}

func TestEmitReplayRewritesTraceVerbatim(t *testing.T) {
	dir := t.TempDir()
	run := recordOriginalRun(t, dir)
	reg := BuildStubRegistry(run)
	rp := New(reg)

	outPath := filepath.Join(dir, "replay.trace.jsonl")
	result, err := rp.Emit(context.Background(), run, outPath)
	require.NoError(t, err)
	assert.True(t, result.StateHashMatch)

	events, err := trace.ReadFile(outPath)
	require.NoError(t, err)
	assert.Len(t, events, len(run.Events))
}

func TestExecReplayMatchesOriginalStateHash(t *testing.T) {
	dir := t.TempDir()
	run := recordOriginalRun(t, dir)
	reg := BuildStubRegistry(run)
	rp := New(reg)

	buildGraph := func(toolClient tools.Client, llmClient tracesvc.LLMClient) *graph.Def {
		return &graph.Def{
			StartNode: "search_pod_start",
			Nodes: []graph.Node{{
				Name: "search_pod_start",
				Fn: func(ctx context.Context, s graph.State) (graph.State, error) {
					res, err := toolClient.Call(ctx, "search", map[string]any{"q": s["q"]})
					if err != nil {
						return nil, err
					}
					hits := res.(map[string]any)["hits"]
					_, err = llmClient.Complete(ctx, tracesvc.LLMRequest{
						Model:    "gpt",
						Messages: []map[string]any{{"role": "user", "content": "go"}},
						Provider: "openai",
					})
					if err != nil {
						return nil, err
					}
					return graph.State{"hits": hits}, nil
				},
			}},
		}
	}

	svc := tracesvc.New(tracesvc.Config{OutputDir: dir})
	result, err := rp.Exec(context.Background(), run, ExecOptions{
		Svc:        svc,
		BuildGraph: buildGraph,
		Input:      graph.State{"q": "go"},
		Pod:        "search_pod",
		TracePath:  filepath.Join(dir, "replay_exec.trace.jsonl"),
	})
	require.NoError(t, err)
	assert.True(t, result.StateHashMatch)
	assert.Empty(t, result.StubMisses)
	assert.Equal(t, 6, result.ReplayCost.TotalTokens)
}

func TestExecReplayRecordsStubMissWithoutFallthrough(t *testing.T) {
	dir := t.TempDir()
	run := recordOriginalRun(t, dir)
	reg := BuildStubRegistry(run)
	rp := New(reg)

	buildGraph := func(toolClient tools.Client, llmClient tracesvc.LLMClient) *graph.Def {
		return &graph.Def{
			StartNode: "search_pod_start",
			Nodes: []graph.Node{{
				Name: "search_pod_start",
				Fn: func(ctx context.Context, s graph.State) (graph.State, error) {
					_, err := toolClient.Call(ctx, "search", map[string]any{"q": "unrecorded"})
					return nil, err
				},
			}},
		}
	}

	svc := tracesvc.New(tracesvc.Config{OutputDir: dir})
	_, err := rp.Exec(context.Background(), run, ExecOptions{
		Svc:        svc,
		BuildGraph: buildGraph,
		Input:      graph.State{"q": "unrecorded"},
		Pod:        "search_pod",
		TracePath:  filepath.Join(dir, "replay_miss.trace.jsonl"),
	})
	assert.ErrorIs(t, err, ErrStubMiss)
}
