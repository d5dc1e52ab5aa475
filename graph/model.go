// Package graph interprets a declarative DAG of nodes and edges, invoking
// node functions and threading trace spans around each (spec.md §4.3).
package graph

import "context"

type (
	// State is the mutable key/value bag threaded through a run.
	State map[string]any

	// NodeFunc maps state to a state update. Implementations must not
	// mutate the state they are given; the executor merges the returned
	// update into its own copy.
	NodeFunc func(ctx context.Context, state State) (State, error)

	// Node is a named function in the graph.
	Node struct {
		Name string
		Fn   NodeFunc
	}

	// Edge connects Source to Target, gated by an optional Condition
	// (spec.md §4.3 edge-condition expression language). An empty
	// Condition always passes. Target == "" denotes a terminal edge.
	Edge struct {
		Source    string
		Target    string
		Condition string
	}

	// Def is a graph definition: nodes, edges, and an optional explicit
	// start node. Loadable from YAML/JSON via config.LoadGraphDef.
	Def struct {
		Name      string
		StartNode string
		Nodes     []Node
		Edges     []Edge
	}
)

// edgesFrom returns the edges whose Source is name, in definition order.
func (d *Def) edgesFrom(name string) []Edge {
	var out []Edge
	for _, e := range d.Edges {
		if e.Source == name {
			out = append(out, e)
		}
	}
	return out
}

func (d *Def) node(name string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// startNode resolves the run's entry point: the explicit StartNode, else
// "<pod>_start", else the first defined node (spec.md §4.3).
func (d *Def) startNode(pod string) (string, bool) {
	if d.StartNode != "" {
		if _, ok := d.node(d.StartNode); ok {
			return d.StartNode, true
		}
		return "", false
	}
	if pod != "" {
		candidate := pod + "_start"
		if _, ok := d.node(candidate); ok {
			return candidate, true
		}
	}
	if len(d.Nodes) > 0 {
		return d.Nodes[0].Name, true
	}
	return "", false
}
