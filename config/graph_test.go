package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huap-project/huap-core/graph"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, writeTestFile(path, content))
	return path
}

func TestLoadGraphDefFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "graph.yaml", `
name: hello_graph
start_node: start
nodes:
  - start
  - finish
edges:
  - source: start
    target: finish
`)

	noop := func(ctx context.Context, state graph.State) (graph.State, error) { return state, nil }
	def, err := LoadGraphDef(path, map[string]graph.NodeFunc{"start": noop, "finish": noop})
	require.NoError(t, err)
	assert.Equal(t, "hello_graph", def.Name)
	assert.Equal(t, "start", def.StartNode)
	assert.Len(t, def.Nodes, 2)
	assert.Len(t, def.Edges, 1)
}

func TestLoadGraphDefFromJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "graph.json", `{
		"name": "hello_graph",
		"nodes": ["start"],
		"edges": []
	}`)

	noop := func(ctx context.Context, state graph.State) (graph.State, error) { return state, nil }
	def, err := LoadGraphDef(path, map[string]graph.NodeFunc{"start": noop})
	require.NoError(t, err)
	assert.Equal(t, "hello_graph", def.Name)
}

func TestLoadGraphDefMissingNodeFunc(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "graph.yaml", `
name: broken
nodes:
  - start
edges: []
`)

	_, err := LoadGraphDef(path, map[string]graph.NodeFunc{})
	assert.Error(t, err)
}
