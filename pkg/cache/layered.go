package cache

import (
	"context"
	"time"
)

// LayeredCache reads through an in-process L1 to Redis (L2) and writes through both.
type LayeredCache struct {
	l1 *MemoryCache
	l2 *RedisCache
}

func NewLayeredCache(l2 *RedisCache, opts ...MemoryOption) *LayeredCache {
	return &LayeredCache{
		l1: NewMemoryCache(opts...),
		l2: l2,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := lc.l2.client.Set(ctx, lc.l2.key(key), data, expiration).Err(); err != nil {
		return err
	}
	lc.l1.setRaw(key, data, expiration)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, ok := lc.l1.getRaw(key); ok {
		return decode(data, dest)
	}

	data, ttl, err := lc.l2.getRaw(ctx, key)
	if err != nil {
		return err
	}
	// Promote with the remaining L2 lifetime so L1 never outlives Redis.
	if ttl > 0 {
		lc.l1.setRaw(key, data, ttl)
	}
	return decode(data, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.l2.Exists(ctx, keys...)
}

// Locks live only in Redis so they are visible across instances.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.l2.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.l2.Unlock(ctx, key)
}

func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}
