package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEval(t *testing.T, src string, vars map[string]any) bool {
	t.Helper()
	e, err := Parse(src)
	require.NoError(t, err)
	v, err := Eval(e, MapLookup(vars))
	require.NoError(t, err)
	return v
}

func TestEvalComparisonsAndBooleanOps(t *testing.T) {
	vars := map[string]any{"score": 7.0, "status": "ok", "tags": []any{"a", "b"}}
	assert.True(t, mustEval(t, "score > 5", vars))
	assert.False(t, mustEval(t, "score > 10", vars))
	assert.True(t, mustEval(t, `status == "ok"`, vars))
	assert.True(t, mustEval(t, `status != "fail" && score >= 7`, vars))
	assert.True(t, mustEval(t, `not (score < 0)`, vars))
	assert.True(t, mustEval(t, `"a" in tags`, vars))
	assert.False(t, mustEval(t, `"z" in tags`, vars))
	assert.True(t, mustEval(t, `len(tags) == 2`, vars))
}

func TestEvalMissingVariableIsNil(t *testing.T) {
	e, err := Parse("missing == null")
	require.NoError(t, err)
	v, err := Eval(e, MapLookup{})
	require.NoError(t, err)
	assert.True(t, v)
}

func TestParseRejectsAttributeAccess(t *testing.T) {
	_, err := Parse("state.__class__")
	assert.Error(t, err)
}

func TestParseRejectsIndexing(t *testing.T) {
	_, err := Parse("tags[0] == 1")
	assert.Error(t, err)
}

func TestParseRejectsArbitraryFunctionCalls(t *testing.T) {
	_, err := Parse("eval(tags)")
	assert.Error(t, err)
}

func TestParseRejectsDunderIdentifiers(t *testing.T) {
	_, err := Parse("__import__ == 1")
	assert.Error(t, err)
}

func TestEvalOrFalseSwallowsErrors(t *testing.T) {
	e, err := Parse("score")
	require.NoError(t, err)
	assert.False(t, EvalOrFalse(e, MapLookup{"score": "not-a-bool"}))
}

func TestParseRejectsUnparseableExpression(t *testing.T) {
	_, err := Parse("score >")
	assert.Error(t, err)
}
