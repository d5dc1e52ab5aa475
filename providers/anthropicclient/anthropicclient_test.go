package anthropicclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNewSucceedsWithAPIKey(t *testing.T) {
	c, err := New(Config{APIKey: "sk-test-key", DefaultModel: "claude-3-5-sonnet"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestConvertMessagesSplitsSystemFromTurns(t *testing.T) {
	messages, system, err := convertMessages([]map[string]any{
		{"role": "system", "content": "be concise"},
		{"role": "user", "content": "hi"},
		{"role": "assistant", "content": "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "be concise", system)
	assert.Len(t, messages, 2)
}

func TestConvertMessagesRejectsUnknownRole(t *testing.T) {
	_, _, err := convertMessages([]map[string]any{{"role": "tool", "content": "x"}})
	assert.Error(t, err)
}
