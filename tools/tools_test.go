package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTracer struct {
	calls   []string
	results []string
}

func (r *recordingTracer) ToolCall(ctx context.Context, tool string, input any, permissions []string) string {
	r.calls = append(r.calls, tool)
	return "sp_" + tool
}

func (r *recordingTracer) ToolResult(ctx context.Context, tool string, result any, durationMs int64, status string, toolErr error) {
	r.results = append(r.results, tool+":"+status)
}

func TestRegistryCallDispatchesToRegisteredClient(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Spec{Name: "search", Permissions: []string{"net"}}, ClientFunc(func(ctx context.Context, name string, input any) (any, error) {
		return map[string]any{"hits": 3}, nil
	}))

	out, err := reg.Call(context.Background(), "search", map[string]any{"q": "go"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.(map[string]any)["hits"])
	assert.Equal(t, []string{"search"}, reg.Names())
}

func TestRegistryCallUnknownToolErrors(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Call(context.Background(), "nope", nil)
	assert.Error(t, err)
}

func TestInstrumentedEmitsCallAndResult(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Spec{Name: "search", Permissions: []string{"net"}}, ClientFunc(func(ctx context.Context, name string, input any) (any, error) {
		return "ok", nil
	}))
	tr := &recordingTracer{}
	inst := NewInstrumented(reg, reg, tr)

	out, err := inst.Call(context.Background(), "search", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []string{"search"}, tr.calls)
	assert.Equal(t, []string{"search:success"}, tr.results)
}

func TestInstrumentedReportsErrorStatus(t *testing.T) {
	boom := errors.New("boom")
	reg := NewRegistry()
	reg.Register(Spec{Name: "fails"}, ClientFunc(func(ctx context.Context, name string, input any) (any, error) {
		return nil, boom
	}))
	tr := &recordingTracer{}
	inst := NewInstrumented(reg, reg, tr)

	_, err := inst.Call(context.Background(), "fails", nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"fails:error"}, tr.results)
}
