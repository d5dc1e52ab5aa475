// Package redis wires memory.Store to a Redis list per bank. Grounded
// on registry.ResultStreamManager's *redis.Client field and Set/Get
// usage (registry/result_stream.go), generalised from a TTL-scoped
// stream-id mapping to a durable per-bank item list.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/huap-project/huap-core/memory"
	"github.com/huap-project/huap-core/plugin"
)

func init() {
	plugin.Register("memory/redis", func(settings map[string]any) (any, error) {
		addr, _ := settings["addr"].(string)
		if addr == "" {
			addr = "localhost:6379"
		}
		password, _ := settings["password"].(string)
		db, _ := settings["db"].(int)
		prefix, _ := settings["key_prefix"].(string)

		return New(Options{
			Client:    redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
			KeyPrefix: prefix,
		})
	})
}

// Options configures the Store.
type Options struct {
	Client *redis.Client

	// KeyPrefix namespaces this store's keys, default "huap:memory:".
	KeyPrefix string
}

// Store implements memory.Store over a Redis list per bank, one
// JSON-encoded MemoryItem per list element. Recall/Reflect fetch the
// whole bank and rank in-process (spec.md NON-GOALS excludes vector
// search from core).
type Store struct {
	rdb    *redis.Client
	prefix string
}

// New builds a Store from opts.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("memory/redis: client is required")
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "huap:memory:"
	}
	return &Store{rdb: opts.Client, prefix: prefix}, nil
}

func (s *Store) bankKey(bank string) string {
	return s.prefix + bank
}

func (s *Store) Retain(ctx context.Context, bank, content, itemContext string, timestamp time.Time, metadata map[string]any) (memory.MemoryItem, error) {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	item := memory.MemoryItem{
		ID:        "mem_" + uuid.NewString(),
		Bank:      bank,
		Content:   content,
		Context:   itemContext,
		Timestamp: timestamp,
		Metadata:  metadata,
	}

	encoded, err := json.Marshal(item)
	if err != nil {
		return memory.MemoryItem{}, fmt.Errorf("memory/redis: encode item: %w", err)
	}
	if err := s.rdb.RPush(ctx, s.bankKey(bank), encoded).Err(); err != nil {
		return memory.MemoryItem{}, fmt.Errorf("memory/redis: retain: %w", err)
	}
	return item, nil
}

func (s *Store) Recall(ctx context.Context, bank, query string, k int, filters memory.Filters) ([]memory.MemoryItem, error) {
	raw, err := s.rdb.LRange(ctx, s.bankKey(bank), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("memory/redis: recall: %w", err)
	}

	candidates := make([]memory.MemoryItem, 0, len(raw))
	for _, encoded := range raw {
		var item memory.MemoryItem
		if err := json.Unmarshal([]byte(encoded), &item); err != nil {
			continue
		}
		if !matchesFilters(item, filters) {
			continue
		}
		item.Score = memory.Score(query, item.Content)
		candidates = append(candidates, item)
	}
	return memory.RankAndTrim(candidates, k), nil
}

// Reflect aliases Recall: this backend has no richer reflection
// strategy (spec.md §4.8 permits this alias).
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
