package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is the key/value surface shared by the memory, Redis and layered caches.
// Values are stored as JSON.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

// GetTyped reads key into a fresh T.
func GetTyped[T any](ctx context.Context, c Service, key string) (T, error) {
	var out T
	if err := c.Get(ctx, key, &out); err != nil {
		return out, err
	}
	return out, nil
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return json.Marshal(v)
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cache: encode: %w", err)
		}
		return b, nil
	}
}

func decode(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache: decode: %w", err)
	}
	return nil
}
