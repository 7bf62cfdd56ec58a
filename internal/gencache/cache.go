// Package gencache caches generated content in Redis, keyed by a
// fingerprint of the model, target platform, and full conversation
// history. A hit lets a repeated request skip the upstream LLM call
// entirely; a miss or any Redis error simply falls through to
// generation, so the cache is never load-bearing.
package gencache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when no entry exists for the key.
var ErrMiss = errors.New("generation cache miss")

// Turn is one entry of the conversation history folded into the cache key.
type Turn struct {
	Role    string
	Content string
}

// Cache stores generation results in Redis with a fixed TTL. Stale
// entries expire server-side; a Get past the TTL is an ordinary miss.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a Cache on the shared Redis client. Entries live for ttl.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Key derives the cache key for one generation request. Any change to
// the model, the platform, or any turn of the history produces a
// different key.
func Key(model, platform string, history []Turn) string {
	h := sha256.New()
	for _, t := range history {
		fmt.Fprintf(h, "%s:%s\n", t.Role, t.Content)
	}
	var b strings.Builder
	b.WriteString("gen:")
	b.WriteString(model)
	b.WriteByte(':')
	b.WriteString(platform)
	b.WriteByte(':')
	b.WriteString(hex.EncodeToString(h.Sum(nil)))
	return b.String()
}

// Get returns the cached generation for key, or ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("reading generation cache: %w", err)
	}
	return v, nil
}

// Set stores value under key for the cache's TTL.
func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing generation cache: %w", err)
	}
	return nil
}
