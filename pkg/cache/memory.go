package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key      string
	data     []byte
	expireAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// MemoryCache is a bounded LRU cache with per-entry expiry.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front = most recently used
	maxSize    int
	defaultTTL time.Duration

	stop chan struct{}
	once sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}

	mc := &MemoryCache{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		stop:       make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go mc.janitor(cfg.CleanupInterval)
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	mc.setRaw(key, data, expiration)
	return nil
}

func (mc *MemoryCache) setRaw(key string, data []byte, expiration time.Duration) {
	if expiration <= 0 {
		expiration = mc.defaultTTL
	}
	var expireAt time.Time
	if expiration > 0 {
		expireAt = time.Now().Add(expiration)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if el, ok := mc.items[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.data = data
		entry.expireAt = expireAt
		mc.order.MoveToFront(el)
		return
	}

	for mc.order.Len() >= mc.maxSize {
		mc.removeElement(mc.order.Back())
	}
	mc.items[key] = mc.order.PushFront(&memoryEntry{key: key, data: data, expireAt: expireAt})
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	data, ok := mc.getRaw(key)
	if !ok {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

func (mc *MemoryCache) getRaw(key string) ([]byte, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	el, ok := mc.items[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*memoryEntry)
	if entry.expired(time.Now()) {
		mc.removeElement(el)
		return nil, false
	}
	mc.order.MoveToFront(el)
	return entry.data, true
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		if el, ok := mc.items[key]; ok {
			mc.removeElement(el)
		}
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	for _, key := range keys {
		if el, ok := mc.items[key]; ok && !el.Value.(*memoryEntry).expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if el, ok := mc.items[key]; ok {
		if !el.Value.(*memoryEntry).expired(time.Now()) {
			return false, nil
		}
		mc.removeElement(el)
	}
	for mc.order.Len() >= mc.maxSize {
		mc.removeElement(mc.order.Back())
	}
	mc.items[key] = mc.order.PushFront(&memoryEntry{
		key:      key,
		data:     []byte(`"locked"`),
		expireAt: time.Now().Add(ttl),
	})
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// Len reports the number of live and not yet collected entries.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.order.Len()
}

func (mc *MemoryCache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	entry := el.Value.(*memoryEntry)
	delete(mc.items, entry.key)
	mc.order.Remove(el)
}

func (mc *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			now := time.Now()
			for el := mc.order.Back(); el != nil; {
				prev := el.Prev()
				if el.Value.(*memoryEntry).expired(now) {
					mc.removeElement(el)
				}
				el = prev
			}
			mc.mu.Unlock()
		case <-mc.stop:
			return
		}
	}
}

func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.stop) })
	return nil
}
