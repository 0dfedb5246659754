package cache

import (
	"context"
	"testing"
	"time"
)

func newTestCache(t *testing.T, maxEntries int) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(maxEntries)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 10)

	if err := c.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get = %q, want %q", got, "value")
	}

	if _, err := c.Get(ctx, "absent"); err != ErrCacheMiss {
		t.Errorf("Get for absent key = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheValueIsolation(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 10)

	original := []byte("immutable")
	if err := c.Set(ctx, "key", original, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Mutating either the stored slice or a returned one must not leak.
	original[0] = 'X'
	first, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	first[0] = 'Y'

	second, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(second) != "immutable" {
		t.Errorf("cached value mutated through aliasing: %q", second)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 10)

	if err := c.Set(ctx, "key", []byte("value"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, err := c.Get(ctx, "key"); err != ErrCacheMiss {
		t.Errorf("Get after expiry = %v, want ErrCacheMiss", err)
	}
	exists, err := c.Exists(ctx, "key")
	if err != nil || exists {
		t.Errorf("Exists after expiry = (%v, %v), want (false, nil)", exists, err)
	}
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 10)

	for _, key := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, key, []byte(key), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "a"); err != ErrCacheMiss {
		t.Errorf("deleted key still present: %v", err)
	}

	// Deleting an absent key is a no-op.
	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("repeated Delete = %v, want nil", err)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	for _, key := range []string{"b", "c"} {
		if _, err := c.Get(ctx, key); err != ErrCacheMiss {
			t.Errorf("key %q survived Clear", key)
		}
	}
}

func TestMemoryCacheEvictsUnderPressure(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 2)

	// "soon" is the entry closest to expiry and must be the eviction victim.
	if err := c.Set(ctx, "soon", []byte("1"), time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set(ctx, "later", []byte("2"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set(ctx, "new", []byte("3"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := c.Get(ctx, "soon"); err != ErrCacheMiss {
		t.Errorf("entry closest to expiry was not evicted")
	}
	if _, err := c.Get(ctx, "later"); err != nil {
		t.Errorf("long-lived entry evicted: %v", err)
	}
	if _, err := c.Get(ctx, "new"); err != nil {
		t.Errorf("new entry missing: %v", err)
	}
}

func TestMemoryCacheOverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, 2)

	if err := c.Set(ctx, "a", []byte("1"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set(ctx, "b", []byte("2"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// Rewriting an existing key at capacity must not evict anything.
	if err := c.Set(ctx, "a", []byte("1b"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	for _, key := range []string{"a", "b"} {
		if _, err := c.Get(ctx, key); err != nil {
			t.Errorf("key %q missing after overwrite: %v", key, err)
		}
	}
}

func TestMemoryCacheCloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(10)
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
