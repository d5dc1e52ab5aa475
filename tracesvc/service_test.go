package tracesvc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/huap-project/huap-core/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(Config{OutputDir: t.TempDir(), USDPerPromptToken: 0.000001, USDPerCompletionToken: 0.000002})
}

func TestStartRunAlreadyActive(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	_, err := s.StartRun(ctx, StartRunOptions{Pod: "demo"})
	require.NoError(t, err)
	defer s.EndRun(ctx, "success", nil, nil)

	_, err = s.StartRun(ctx, StartRunOptions{Pod: "demo"})
	assert.ErrorIs(t, err, ErrAlreadyActive)
}

func TestIdleServiceEmitsAreNoOps(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	assert.Equal(t, "", s.NodeEnter(ctx, "n", nil))
	s.NodeExit(ctx, "n", nil, 0) // must not panic
	s.PolicyCheck(ctx, "p", "allow", "", "", nil)
	assert.Equal(t, StateIdle, s.State())
}

func TestHelloTraceDeterminism(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	run := func() *trace.Run {
		s := New(Config{OutputDir: dir})
		tracePath := filepath.Join(dir, "hello.trace.jsonl")
		runID, err := s.StartRun(ctx, StartRunOptions{Pod: "hello", Input: map[string]any{"message": "hi"}, TracePath: tracePath})
		require.NoError(t, err)
		require.NotEmpty(t, runID)

		s.NodeEnter(ctx, "start", nil)
		s.NodeExit(ctx, "start", map[string]any{"echoed": "hi"}, 1)

		s.NodeEnter(ctx, "greet", nil)
		s.NodeExit(ctx, "greet", map[string]any{"greeting": "Hello, hi!"}, 1)

		s.NodeEnter(ctx, "end", nil)
		s.NodeExit(ctx, "end", map[string]any{"status": "complete"}, 1)

		s.EndRun(ctx, "success", map[string]any{"status": "complete"}, nil)

		events, err := trace.ReadFile(tracePath)
		require.NoError(t, err)
		return trace.BuildRun(events)
	}

	a := run()
	require.NoError(t, a.Validate())

	names := make([]trace.Name, len(a.Events))
	for i, e := range a.Events {
		names[i] = e.Name
	}
	assert.Equal(t, []trace.Name{
		trace.NameRunStart,
		trace.NameNodeEnter, trace.NameNodeExit,
		trace.NameNodeEnter, trace.NameNodeExit,
		trace.NameNodeEnter, trace.NameNodeExit,
		trace.NameRunEnd,
	}, names)

	// Re-running with identical input/output must produce the same
	// terminal state hash (spec.md §8 scenario 1).
	b := run()
	require.NoError(t, b.Validate())
	assert.Equal(t, a.RunEnd.Data, b.RunEnd.Data)
}

func TestLLMResponseEmitsAutomaticCostRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	tracePath := filepath.Join(t.TempDir(), "r.trace.jsonl")
	_, err := s.StartRun(ctx, StartRunOptions{Pod: "p", TracePath: tracePath})
	require.NoError(t, err)

	s.LLMRequest(ctx, "gpt", []map[string]any{{"role": "user", "content": "ping"}}, 0, 0, "openai")
	s.LLMResponse(ctx, "gpt", "pong", trace.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, 100, "openai")
	s.EndRun(ctx, "success", nil, nil)

	events, err := trace.ReadFile(tracePath)
	require.NoError(t, err)
	run := trace.BuildRun(events)
	require.NoError(t, run.Validate())

	var sawCost bool
	for _, e := range run.Events {
		if e.Name == trace.NameCostRecord {
			sawCost = true
		}
	}
	assert.True(t, sawCost)
	assert.Equal(t, 15, run.Cost.TotalTokens)
}
