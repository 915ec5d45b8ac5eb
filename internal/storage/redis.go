package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/stockroom/internal/platform/cache"
)

const maxWatchRetries = 5

// Redis stores documents as plain string keys.
type Redis struct {
	client *redis.Client
	owned  bool
}

// NewRedis wraps an existing client. Close leaves the client open.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// DialRedis opens a dedicated client that Close shuts down.
func DialRedis(ctx context.Context, addr string) (*Redis, error) {
	client, err := cache.New(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return &Redis{client: client, owned: true}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: redis get %s: %w", key, err)
	}
	return data, nil
}

func (r *Redis) Put(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("storage: redis set %s: %w", key, err)
	}
	return nil
}

// Update uses WATCH/MULTI and retries when another writer got there first.
func (r *Redis) Update(ctx context.Context, key string, fn UpdateFunc) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}
	for range maxWatchRetries {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("storage: redis update %s: too much contention", key)
}

func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
