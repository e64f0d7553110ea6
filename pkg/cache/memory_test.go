package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type cachedResult struct {
	Pair   string  `json:"pair"`
	Action string  `json:"action"`
	Score  float64 `json:"score"`
}

func TestMemoryCacheRoundTripStruct(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	in := cachedResult{Pair: "EUR/USD", Action: "WAIT", Score: 0.25}
	if err := mc.Set(ctx, "result:eurusd", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := GetTyped[cachedResult](ctx, mc, "result:eurusd")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != in {
		t.Fatalf("unexpected value %+v", got)
	}
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	var s string
	if err := mc.Get(ctx, "absent", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	if err := mc.Set(ctx, "short", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(25 * time.Millisecond)
	if err := mc.Get(ctx, "short", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", 1, time.Minute)
	_ = mc.Set(ctx, "b", 2, time.Minute)

	var v int
	if err := mc.Get(ctx, "a", &v); err != nil { // a becomes most recent
		t.Fatalf("get a: %v", err)
	}
	_ = mc.Set(ctx, "c", 3, time.Minute)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("expected a and c to survive")
	}
	if mc.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", mc.Len())
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock:req-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first lock to succeed, got %v %v", ok, err)
	}
	if ok, _ := mc.TryLock(ctx, "lock:req-1", time.Minute); ok {
		t.Fatalf("expected second lock to fail")
	}
	if err := mc.Unlock(ctx, "lock:req-1"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if ok, _ := mc.TryLock(ctx, "lock:req-1", time.Minute); !ok {
		t.Fatalf("expected lock after unlock to succeed")
	}
}

func TestKey(t *testing.T) {
	if got := Key("result", "EUR/USD", 10000.0, 0.02); got != "result:EUR/USD:10000:0.02" {
		t.Fatalf("unexpected key %q", got)
	}
}
