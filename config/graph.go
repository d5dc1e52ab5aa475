package config

import (
	"fmt"

	"github.com/huap-project/huap-core/graph"
)

// graphDocument is the on-disk shape of a graph definition: node names
// and edges only. Node functions are Go code, not data, so callers of
// LoadGraphDef supply them via nodeFuncs, keyed by node name.
type graphDocument struct {
	Name      string         `json:"name" yaml:"name"`
	StartNode string         `json:"start_node,omitempty" yaml:"start_node,omitempty"`
	Nodes     []string       `json:"nodes" yaml:"nodes"`
	Edges     []edgeDocument `json:"edges" yaml:"edges"`
}

type edgeDocument struct {
	Source    string `json:"source" yaml:"source"`
	Target    string `json:"target" yaml:"target"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// LoadGraphDef decodes a graph definition document (spec.md §6) from
// path, JSON or YAML by extension, and resolves each named node to the
// NodeFunc supplied in nodeFuncs. Returns an error naming the first
// node with no corresponding entry in nodeFuncs.
func LoadGraphDef(path string, nodeFuncs map[string]graph.NodeFunc) (*graph.Def, error) {
	var doc graphDocument
	if err := decodeDocument(path, &doc); err != nil {
		return nil, err
	}

	nodes := make([]graph.Node, 0, len(doc.Nodes))
	for _, name := range doc.Nodes {
		fn, ok := nodeFuncs[name]
		if !ok {
			return nil, fmt.Errorf("config: graph %s: no node function registered for node %q", path, name)
		}
		nodes = append(nodes, graph.Node{Name: name, Fn: fn})
	}

	edges := make([]graph.Edge, 0, len(doc.Edges))
	for _, e := range doc.Edges {
		edges = append(edges, graph.Edge{Source: e.Source, Target: e.Target, Condition: e.Condition})
	}

	return &graph.Def{
		Name:      doc.Name,
		StartNode: doc.StartNode,
		Nodes:     nodes,
		Edges:     edges,
	}, nil
}
