package cache

import (
	"testing"
	"time"
)

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3) // b is least recently used

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("a", "x")
	c.Set("b", "y")
	now = now.Add(2 * time.Second)
	c.Set("c", "z")

	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_PurgeInvalidatesGeneration(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	gen := c.Generation()
	c.Set("a", 1)
	c.Purge()

	if c.Size() != 0 {
		t.Fatalf("Size() after Purge = %d", c.Size())
	}
	if c.SetIfCurrent("stale", 1, gen) {
		t.Error("SetIfCurrent should refuse a generation taken before Purge")
	}
	if !c.SetIfCurrent("fresh", 2, c.Generation()) {
		t.Error("SetIfCurrent should accept the current generation")
	}
	if v, ok := c.Get("fresh"); !ok || v != 2 {
		t.Errorf("Get(fresh) = %v, %v", v, ok)
	}
}

func TestManager(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)

	m := NewManager(nil)
	m.Register(c)
	now = now.Add(time.Hour)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("CleanNow() = %d, want 1", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}
