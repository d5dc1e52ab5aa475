// Package mongo wires memory.Store to a MongoDB collection, one document
// per (bank, id). Grounded on features/memory/mongo/store.go and its
// clients/mongo/client.go low-level wrapper, narrowed from that package's
// agent/run history document shape to bank-partitioned memory items and
// ported to the mongo-driver/v2 API surface already used elsewhere in
// this module.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/google/uuid"

	"github.com/huap-project/huap-core/memory"
	"github.com/huap-project/huap-core/plugin"
)

func init() {
	plugin.Register("memory/mongo", func(settings map[string]any) (any, error) {
		uri, _ := settings["uri"].(string)
		if uri == "" {
			return nil, errors.New("memory/mongo: settings.uri is required")
		}
		database, _ := settings["database"].(string)
		collection, _ := settings["collection"].(string)

		client, err := mongodriver.Connect(options.Client().ApplyURI(uri))
		if err != nil {
			return nil, fmt.Errorf("memory/mongo: connect: %w", err)
		}
		return New(Options{Client: client, Database: database, Collection: collection})
	})
}

const (
	defaultCollection = "memory_items"
	defaultTimeout    = 5 * time.Second
)

// Options configures the Store.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store implements memory.Store by delegating to a Mongo collection.
type Store struct {
	coll    *mongodriver.Collection
	timeout time.Duration
}

type itemDocument struct {
	ID        string         `bson:"_id"`
	Bank      string         `bson:"bank"`
	Content   string         `bson:"content"`
	Context   string         `bson:"context,omitempty"`
	Timestamp time.Time      `bson:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty"`
}

// New builds a Mongo-backed memory store using the provided client.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("memory/mongo: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("memory/mongo: database name is required")
	}
	collection := opts.Collection
	if collection == "" {
		collection = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(collection)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	index := mongodriver.IndexModel{Keys: bson.D{{Key: "bank", Value: 1}, {Key: "timestamp", Value: -1}}}
	if _, err := coll.Indexes().CreateOne(ctx, index); err != nil {
		return nil, fmt.Errorf("memory/mongo: ensure index: %w", err)
	}

	return &Store{coll: coll, timeout: timeout}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
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

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc := itemDocument{
		ID: item.ID, Bank: bank, Content: content, Context: itemContext,
		Timestamp: timestamp, Metadata: metadata,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return memory.MemoryItem{}, fmt.Errorf("memory/mongo: retain: %w", err)
	}
	return item, nil
}

func (s *Store) Recall(ctx context.Context, bank, query string, k int, filters memory.Filters) ([]memory.MemoryItem, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"bank": bank}
	if filters.Context != "" {
		filter["context"] = filters.Context
	}
	if !filters.Since.IsZero() {
		filter["timestamp"] = bson.M{"$gte": filters.Since}
	}
	for k, v := range filters.Metadata {
		filter["metadata."+k] = v
	}

	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("memory/mongo: recall: %w", err)
	}
	defer cur.Close(ctx)

	var candidates []memory.MemoryItem
	for cur.Next(ctx) {
		var doc itemDocument
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		candidates = append(candidates, memory.MemoryItem{
			ID: doc.ID, Bank: doc.Bank, Content: doc.Content, Context: doc.Context,
			Timestamp: doc.Timestamp, Metadata: doc.Metadata,
			Score: memory.Score(query, doc.Content),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("memory/mongo: recall: %w", err)
	}
	return memory.RankAndTrim(candidates, k), nil
}

// Reflect aliases Recall: this backend has no richer reflection
// strategy (spec.md §4.8 permits this alias).
func (s *Store) Reflect(ctx context.Context, bank, query string, k int, filters memory.Filters) ([]memory.MemoryItem, error) {
	return s.Recall(ctx, bank, query, k, filters)
}
