package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/huap-project/huap-core/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetainThenRecallRanksByOverlap(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Retain(ctx, "bank1", "the user prefers dark mode and concise answers", "preference", time.Now(), nil)
	require.NoError(t, err)
	_, err = s.Retain(ctx, "bank1", "the weather today is sunny", "chitchat", time.Now(), nil)
	require.NoError(t, err)

	results, err := s.Recall(ctx, "bank1", "dark mode preference", 5, memory.Filters{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "dark mode")
}

func TestRecallHonorsContextFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.Retain(ctx, "bank1", "summary one", "summary", time.Now(), nil)
	_, _ = s.Retain(ctx, "bank1", "raw transcript two", "raw", time.Now(), nil)

	results, err := s.Recall(ctx, "bank1", "summary", 5, memory.Filters{Context: "summary"})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "summary", r.Context)
	}
}

func TestRecallRespectsK(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 5; i++ {
		_, _ = s.Retain(ctx, "bank1", "note about orders", "", time.Now(), nil)
	}
	results, err := s.Recall(ctx, "bank1", "orders", 2, memory.Filters{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestReflectAliasesRecall(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.Retain(ctx, "bank1", "insight about the customer", "", time.Now(), nil)

	recallResults, _ := s.Recall(ctx, "bank1", "customer", 5, memory.Filters{})
	reflectResults, err := s.Reflect(ctx, "bank1", "customer", 5, memory.Filters{})
	require.NoError(t, err)
	assert.Equal(t, recallResults, reflectResults)
}

func TestRetainDoesNotLeakBanks(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.Retain(ctx, "bank1", "bank1 note", "", time.Now(), nil)
	_, _ = s.Retain(ctx, "bank2", "bank2 note", "", time.Now(), nil)

	results, err := s.Recall(ctx, "bank1", "note", 10, memory.Filters{})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "bank1", r.Bank)
	}
}
