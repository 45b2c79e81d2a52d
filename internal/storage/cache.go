package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docforge/extract-worker/internal/extract"
)

const cacheKeyPrefix = "extract:result:"

// CachedResult is the cacheable part of a successful outcome. Failures
// are never cached; a transient engine outage must not stick.
type CachedResult struct {
	Text      string               `json:"text"`
	Method    extract.SourceMethod `json:"method"`
	PageCount int                  `json:"page_count"`
	Warnings  []string             `json:"warnings,omitempty"`
}

// ResultCache deduplicates extraction work by file content hash.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache connects to Redis and verifies the connection.
func NewResultCache(redisURL string, ttl time.Duration) (*ResultCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &ResultCache{client: client, ttl: ttl}, nil
}

// ContentKey derives the cache key from the file bytes: identical
// content yields identical extraction results.
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached result for the key, or (nil, nil) on a miss.
func (c *ResultCache) Get(ctx context.Context, key string) (*CachedResult, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var result CachedResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry is treated as a miss and overwritten later.
		return nil, nil
	}
	return &result, nil
}

// Set stores a successful result under the key with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, key string, result *CachedResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *ResultCache) Close() error {
	return c.client.Close()
}
