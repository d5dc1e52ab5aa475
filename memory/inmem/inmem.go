// Package inmem provides an in-process implementation of memory.Store
// for tests and local development. Data is lost when the process exits.
// Grounded on runtime/agents/memory/inmem's two-level map store, widened
// from an agent/run history log to bank-partitioned retain/recall items.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huap-project/huap-core/memory"
)

// Store implements memory.Store using an in-process map keyed by bank.
// Safe for concurrent use; all operations defensively copy data so
// callers cannot mutate internal state.
type Store struct {
	mu    sync.RWMutex
	banks map[string][]memory.MemoryItem
}

// New returns an empty, ready-to-use Store.
func New() *Store {
	return &Store{banks: make(map[string][]memory.MemoryItem)}
}

func (s *Store) Retain(_ context.Context, bank, content, itemContext string, timestamp time.Time, metadata map[string]any) (memory.MemoryItem, error) {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	item := memory.MemoryItem{
		ID:        "mem_" + uuid.NewString(),
		Bank:      bank,
		Content:   content,
		Context:   itemContext,
		Timestamp: timestamp,
		Metadata:  cloneMeta(metadata),
	}

	s.mu.Lock()
	s.banks[bank] = append(s.banks[bank], item)
	s.mu.Unlock()
	return item, nil
}

func (s *Store) Recall(_ context.Context, bank, query string, k int, filters memory.Filters) ([]memory.MemoryItem, error) {
	s.mu.RLock()
	items := s.banks[bank]
	candidates := make([]memory.MemoryItem, 0, len(items))
	for _, it := range items {
		if !matchesFilters(it, filters) {
			continue
		}
		scored := it
		scored.Score = memory.Score(query, it.Content)
		candidates = append(candidates, scored)
	}
	s.mu.RUnlock()

	return memory.RankAndTrim(candidates, k), nil
}

// Reflect aliases Recall: inmem has no richer reflection strategy.
func (s *Store) Reflect(ctx context.Context, bank, query string, k int, filters memory.Filters) ([]memory.MemoryItem, error) {
	return s.Recall(ctx, bank, query, k, filters)
}

func matchesFilters(item memory.MemoryItem, f memory.Filters) bool {
	if f.Context != "" && item.Context != f.Context {
		return false
	}
	if !f.Since.IsZero() && item.Timestamp.Before(f.Since) {
		return false
	}
	for k, v := range f.Metadata {
		if item.Metadata[k] != v {
			return false
		}
	}
	return true
}

func cloneMeta(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
