package replay

import (
	"context"
	"fmt"

	"github.com/huap-project/huap-core/graph"
	"github.com/huap-project/huap-core/tools"
	"github.com/huap-project/huap-core/trace"
	"github.com/huap-project/huap-core/tracesvc"
)

type (
	// Mode selects how Replayer re-drives a recorded run.
	Mode string

	// Result is the outcome of a single replay (spec.md §4.4).
	Result struct {
		Mode  Mode
		RunID string

		// StateHashMatch is always true for ModeEmit (no code executes,
		// so nothing can drift); for ModeExec it compares the replay's
		// final state hash to the recorded run_end state_hash.
		StateHashMatch    bool
		OriginalStateHash string
		ReplayStateHash   string

		OriginalCost trace.CostSummary
		ReplayCost   trace.CostSummary

		// StubMisses lists "tool:<name>" / "llm:<model>" keys that had
		// no recorded response; a non-empty list does not by itself mean
		// the replay failed (spec.md §4.4 failure semantics).
		StubMisses []string
	}

	// GraphFactory builds the graph.Def to execute under ModeExec, given
	// the stubbed tool and LLM clients the node functions should close
	// over instead of live ones.
	GraphFactory func(toolClient tools.Client, llmClient tracesvc.LLMClient) *graph.Def

	// ExecOptions configures ModeExec.
	ExecOptions struct {
		Svc        *tracesvc.Service
		BuildGraph GraphFactory
		Input      graph.State
		Pod        string
		Graph      string
		GraphPath  string
		UserID     string
		SessionID  string
		TracePath  string

		// ToolFallback/LLMFallback are consulted on a stub miss; leave
		// nil for a strict replay where any miss is a hard error.
		ToolFallback tools.Client
		LLMFallback  tracesvc.LLMClient
	}
)

const (
	ModeEmit Mode = "emit"
	ModeExec Mode = "exec"
)

// Replayer re-drives a recorded trace.Run using a StubRegistry built from
// it (or from a different run, for cross-run comparison scenarios).
type Replayer struct {
	Registry *StubRegistry
}

// New constructs a Replayer over registry.
func New(registry *StubRegistry) *Replayer {
	return &Replayer{Registry: registry}
}

// Emit re-emits original's events verbatim into a fresh trace file at
// path, executing no user code (spec.md §4.4 emit mode). It is used to
// validate trace structure and regenerate artifacts; it never detects
// code-level drift, so StateHashMatch is unconditionally true.
func (p *Replayer) Emit(ctx context.Context, original *trace.Run, path string) (*Result, error) {
	w, err := trace.NewWriter(path)
	if err != nil {
		return nil, fmt.Errorf("replay: emit: %w", err)
	}
	for _, e := range original.Events {
		w.Write(ctx, e)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("replay: emit: %w", err)
	}
	return &Result{
		Mode:           ModeEmit,
		RunID:          original.RunID,
		StateHashMatch: true,
		OriginalCost:   original.Cost,
		ReplayCost:     original.Cost,
	}, nil
}

// Exec loads the original graph via opts.BuildGraph (wired with stub
// tool/LLM clients backed by p.Registry) and re-executes it through
// graph.Executor, emitting a fresh, independently structured trace via
// opts.Svc. It compares the replay's final state hash against the
// recorded run's run_end.state_hash (spec.md §4.4 exec mode).
func (p *Replayer) Exec(ctx context.Context, original *trace.Run, opts ExecOptions) (*Result, error) {
	misses := &missRecorder{}
	stubTool := &StubToolClient{Registry: p.Registry, Fallback: opts.ToolFallback, misses: misses}
	stubLLM := &StubLLMClient{Registry: p.Registry, Fallback: opts.LLMFallback, misses: misses}

	def := opts.BuildGraph(stubTool, stubLLM)

	runID, err := opts.Svc.StartRun(ctx, tracesvc.StartRunOptions{
		Pod:       opts.Pod,
		Graph:     opts.Graph,
		GraphPath: opts.GraphPath,
		Input:     opts.Input,
		UserID:    opts.UserID,
		SessionID: opts.SessionID,
		TracePath: opts.TracePath,
	})
	if err != nil {
		return nil, fmt.Errorf("replay: exec: %w", err)
	}

	ex := graph.New(def)
	finalState, runErr := ex.Run(ctx, opts.Svc, opts.Pod, opts.Input)

	status := "success"
	if runErr != nil {
		status = "error"
	}
	opts.Svc.EndRun(ctx, status, finalState, runErr)

	replayHash := trace.ContentHash(finalState)
	var originalHash string
	if original.RunEnd != nil {
		var d trace.RunEndData
		_ = original.RunEnd.UnmarshalData(&d)
		originalHash = d.StateHash
	}

	replayRun, readErr := rereadRun(runID, opts.TracePath)
	var replayCost trace.CostSummary
	if readErr == nil {
		replayCost = replayRun.Cost
	}

	return &Result{
		Mode:              ModeExec,
		RunID:             original.RunID,
		StateHashMatch:    originalHash != "" && originalHash == replayHash,
		OriginalStateHash: originalHash,
		ReplayStateHash:   replayHash,
		OriginalCost:      original.Cost,
		ReplayCost:        replayCost,
		StubMisses:        misses.snapshot(),
	}, runErr
}

func rereadRun(runID, path string) (*trace.Run, error) {
	if path == "" {
		return nil, fmt.Errorf("replay: no trace path to reread")
	}
	events, err := trace.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return trace.BuildRun(events), nil
}
