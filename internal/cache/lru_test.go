package cache

import (
	"testing"
	"time"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	c.Set("d", "4")

	if _, found := c.Get("a"); found {
		t.Error("a should have been evicted")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, found := c.Get(key); !found {
			t.Errorf("%s should still be cached", key)
		}
	}
	if got := c.Size(); got != 3 {
		t.Errorf("Size() = %d, want 3", got)
	}
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, found := c.Get("b"); found {
		t.Error("b should have been evicted, a was touched more recently")
	}
	if _, found := c.Get("a"); !found {
		t.Error("a should still be cached")
	}
}

func TestLRUSetReplacesValue(t *testing.T) {
	c := NewLRUCache[string](2, time.Hour)

	c.Set("a", "old")
	c.Set("a", "new")

	if got, _ := c.Get("a"); got != "new" {
		t.Errorf("Get(a) = %q, want %q", got, "new")
	}
	if got := c.Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}

func TestLRUExpiresOnRead(t *testing.T) {
	clock := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, 5*time.Minute).WithClock(func() time.Time { return clock })

	c.Set("a", "1")
	if _, found := c.Get("a"); !found {
		t.Fatal("fresh entry should be a hit")
	}

	clock = clock.Add(6 * time.Minute)
	if _, found := c.Get("a"); found {
		t.Error("expired entry should be a miss")
	}
	if got := c.Size(); got != 0 {
		t.Errorf("Size() after expired read = %d, want 0", got)
	}
}

func TestLRUCleanExpired(t *testing.T) {
	clock := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, 5*time.Minute).WithClock(func() time.Time { return clock })

	c.Set("a", "1")
	c.Set("b", "2")
	clock = clock.Add(6 * time.Minute)
	c.Set("c", "3")

	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired() = %d, want 2", removed)
	}
	if _, found := c.Get("c"); !found {
		t.Error("fresh entry should survive the sweep")
	}
}

func TestLRUDelete(t *testing.T) {
	c := NewLRUCache[string](10, time.Hour)

	c.Set("a", "1")
	c.Delete("a")
	c.Delete("missing")

	if _, found := c.Get("a"); found {
		t.Error("deleted entry should be a miss")
	}
}

func TestManagerSweepsRegisteredCaches(t *testing.T) {
	clock := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	a := NewLRUCache[string](10, time.Minute).WithClock(func() time.Time { return clock })
	b := NewLRUCache[int](10, time.Minute).WithClock(func() time.Time { return clock })

	a.Set("x", "1")
	b.Set("y", 2)
	clock = clock.Add(2 * time.Minute)

	m := NewManager()
	m.Register(a)
	m.Register(b)
	m.StartCleanup(5 * time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for a.Size()+b.Size() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sweep did not remove expired entries, sizes %d/%d", a.Size(), b.Size())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Stop()
}

func BenchmarkLRUMixedWorkload(b *testing.B) {
	c := NewLRUCache[string](1000, time.Hour)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			c.Set("key", "value")
		} else {
			c.Get("key")
		}
	}
}
