package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/huap-project/huap-core/graph/expr"
)

// Tracer is the subset of tracesvc.Service the executor needs to thread
// spans around node invocations. Node-function-as-future execution and
// the "never run two nodes concurrently" rule are grounded on
// runtime/agent/engine/inmem/engine.go's goroutine-per-invocation model,
// collapsed to a single in-process walker per spec.md's no-distributed-
// coordination non-goal.
type Tracer interface {
	NodeEnter(ctx context.Context, node string, state any) string
	NodeExit(ctx context.Context, node string, output any, durationMs int64)
	Error(ctx context.Context, message, node, kind string)
}

// Executor walks a Def starting from its resolved start node, invoking
// each node function at most once per run (spec.md §4.3 cycle guard).
type Executor struct {
	def *Def
}

// New constructs an Executor for def.
func New(def *Def) *Executor {
	return &Executor{def: def}
}

// Run executes the graph starting from its resolved start node against
// initial state, merging each node's returned update into the running
// state. It returns the final state, or the error raised by a node
// function (surfaced as an error trace event before being returned).
func (ex *Executor) Run(ctx context.Context, tr Tracer, pod string, initial State) (State, error) {
	start, ok := ex.def.startNode(pod)
	if !ok {
		return nil, fmt.Errorf("graph: no start node resolvable for pod %q", pod)
	}

	state := cloneState(initial)
	visited := make(map[string]bool)
	frontier := []string{start}

	for len(frontier) > 0 {
		name := frontier[0]
		frontier = frontier[1:]

		if visited[name] {
			continue
		}
		visited[name] = true

		n, ok := ex.def.node(name)
		if !ok {
			err := fmt.Errorf("graph: node %q has no definition", name)
			tr.Error(ctx, err.Error(), name, "missing_node")
			return state, err
		}

		spanID := tr.NodeEnter(ctx, name, state)
		_ = spanID
		callStart := time.Now()
		update, err := n.Fn(ctx, cloneState(state))
		durationMs := time.Since(callStart).Milliseconds()
		if err != nil {
			tr.Error(ctx, err.Error(), name, "node_error")
			tr.NodeExit(ctx, name, nil, durationMs)
			return state, fmt.Errorf("graph: node %q: %w", name, err)
		}
		state = mergeState(state, update)
		tr.NodeExit(ctx, name, update, durationMs)

		for _, e := range ex.def.edgesFrom(name) {
			if e.Target == "" {
				continue
			}
			if !edgePasses(e, state) {
				continue
			}
			frontier = append(frontier, e.Target)
		}
	}

	return state, nil
}

// edgePasses evaluates e.Condition against state. An empty condition
// always passes; a condition that fails to parse or raises during
// evaluation is treated as false (spec.md §4.3).
func edgePasses(e Edge, state State) bool {
	if e.Condition == "" {
		return true
	}
	compiled, err := expr.Parse(e.Condition)
	if err != nil {
		return false
	}
	return expr.EvalOrFalse(compiled, expr.MapLookup(state))
}

func cloneState(s State) State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func mergeState(base, update State) State {
	if update == nil {
		return base
	}
	out := cloneState(base)
	for k, v := range update {
		out[k] = v
	}
	return out
}
