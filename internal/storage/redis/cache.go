// Package redis keeps encoded catalog API responses in Redis.
package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "booknest:resp:"

// NewClient connects to the Redis server at url, e.g.
// "redis://localhost:6379/0", and pings it.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

// ResponseCache is a cache-aside store for response bodies. Entries expire
// after the configured TTL; catalog writes do not invalidate them.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResponseCache returns a ResponseCache whose entries live for ttl.
func NewResponseCache(client *redis.Client, ttl time.Duration) *ResponseCache {
	return &ResponseCache{client: client, ttl: ttl}
}

// cacheKey hashes request keys, which can be long, into fixed-size Redis keys.
func cacheKey(key string) string {
	return keyPrefix + strconv.FormatUint(xxhash.Sum64String(key), 16)
}

// Get returns the body stored for key.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return body, true, nil
}

// Set stores body under key.
func (c *ResponseCache) Set(ctx context.Context, key string, body []byte) error {
	return errors.Wrap(c.client.Set(ctx, cacheKey(key), body, c.ttl).Err(), "redis set")
}

// Ping reports whether Redis is reachable.
func (c *ResponseCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
