package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

// New connects to Redis and pings it. The client is closed when the ping
// fails, so callers only own it on success.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: dialTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", addr, err)
	}
	return client, nil
}

// NewViewCache builds the cache used for filtered inventory views. A zero
// ttl or nil client disables caching.
func NewViewCache(client *redis.Client, ttl time.Duration) *JSONCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return NewJSONCache(client, "stockroom", ttl)
}
