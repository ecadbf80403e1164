package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache stores tool results.
type Cache interface {
	Get(key string) (any, bool)
	Add(key string, value any)
}

// CacheKeyFunc generates a cache key from tool name and arguments.
type CacheKeyFunc func(toolName string, args json.RawMessage) string

// DefaultCacheKey hashes the tool name and arguments.
func DefaultCacheKey(toolName string, args json.RawMessage) string {
	h := sha256.New()
	h.Write([]byte(toolName))
	h.Write([]byte{0})
	h.Write(args)
	return hex.EncodeToString(h.Sum(nil))
}

// NewLRUCache returns a size-bounded cache whose entries expire after ttl.
// A zero ttl keeps entries until evicted.
func NewLRUCache(size int, ttl time.Duration) Cache {
	return lruCache{expirable.NewLRU[string, any](size, nil, ttl)}
}

type lruCache struct {
	lru *expirable.LRU[string, any]
}

func (c lruCache) Get(key string) (any, bool) { return c.lru.Get(key) }
func (c lruCache) Add(key string, value any)  { c.lru.Add(key, value) }

// WithCache caches successful results keyed by DefaultCacheKey.
func WithCache(cache Cache) Middleware {
	return WithCacheCustomKey(cache, DefaultCacheKey)
}

// WithCacheCustomKey caches successful results under keys from keyFunc.
func WithCacheCustomKey(cache Cache, keyFunc CacheKeyFunc) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			key := keyFunc(toolName(ctx), args)
			if cached, ok := cache.Get(key); ok {
				return cached, nil
			}

			result, err := next(ctx, args)
			if err != nil {
				return nil, err
			}
			cache.Add(key, result)
			return result, nil
		}
	}
}
