package cache

import (
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[int](3, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache should miss")
	}

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}

	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("overwrite failed: got %d, want 2", v)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // touch a so b is the eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	c := NewLRUCache[string](10, 20*time.Millisecond)

	c.Set("k", "v")
	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry should miss")
	}
	if n := c.CleanExpired(); n != 0 {
		// Get already removed it lazily.
		t.Errorf("CleanExpired = %d, want 0", n)
	}
}

func TestLRUCache_DeleteByPrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("Laugh House|2025-08-29", 1)
	c.Set("Laugh House|2025-08-16", 2)
	c.Set("Elsewhere|2025-08-29", 3)

	if n := c.DeleteByPrefix("Laugh House|"); n != 2 {
		t.Fatalf("DeleteByPrefix = %d, want 2", n)
	}
	if _, ok := c.Get("Laugh House|2025-08-29"); ok {
		t.Error("prefixed key should be gone")
	}
	if _, ok := c.Get("Elsewhere|2025-08-29"); !ok {
		t.Error("other venue should be untouched")
	}
}
