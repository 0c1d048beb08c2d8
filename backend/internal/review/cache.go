// ============================================================================
// backend/internal/review/cache.go
// TTL cache backing the admin review stage
// ============================================================================

package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"me_result_portal/backend/internal/shared"
)

// Cache is a byte-value TTL cache. Expired entries behave as absent.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ============================================================================
// MongoDB Implementation
// ============================================================================

const cacheQueryTimeout = 10 * time.Second

// MongoCache stores cache entries in the review_cache collection so staged
// batches survive process restarts.
type MongoCache struct {
	cacheCol *mongo.Collection
}

// NewMongoCache creates a MongoCache backed by the given database
func NewMongoCache(db *mongo.Database) *MongoCache {
	return &MongoCache{cacheCol: db.Collection(shared.CollectionReviewCache)}
}

func (c *MongoCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	queryCtx, cancel := context.WithTimeout(ctx, cacheQueryTimeout)
	defer cancel()

	var doc bson.M
	err := c.cacheCol.FindOne(queryCtx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	expiresAt, err := shared.GetTime(doc["expires_at"])
	if err != nil || time.Now().After(expiresAt) {
		// Expired entries are removed lazily on read
		c.cacheCol.DeleteOne(queryCtx, bson.M{"_id": key})
		return nil, false, nil
	}

	value, ok := doc["value"].(primitive.Binary)
	if !ok {
		return nil, false, fmt.Errorf("cache entry %s has no value", key)
	}
	return value.Data, true, nil
}

func (c *MongoCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	queryCtx, cancel := context.WithTimeout(ctx, cacheQueryTimeout)
	defer cancel()

	doc := bson.M{
		"value":      primitive.Binary{Data: value},
		"expires_at": primitive.NewDateTimeFromTime(time.Now().Add(ttl)),
	}

	opts := options.Update().SetUpsert(true)
	if _, err := c.cacheCol.UpdateOne(queryCtx, bson.M{"_id": key}, bson.M{"$set": doc}, opts); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (c *MongoCache) Delete(ctx context.Context, key string) error {
	queryCtx, cancel := context.WithTimeout(ctx, cacheQueryTimeout)
	defer cancel()

	if _, err := c.cacheCol.DeleteOne(queryCtx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// ============================================================================
// In-Memory Implementation
// ============================================================================

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemCache is an in-memory Cache for tests and local development
type MemCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

// NewMemCache creates an empty MemCache
func NewMemCache() *MemCache {
	return &MemCache{entries: make(map[string]memEntry)}
}

func (c *MemCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *MemCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}
