package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCache_Basic(t *testing.T) {
	c := New[string, int](3)

	c.Set("issue.severity = 'error'", 1)
	c.Set("issue.code = 'structure'", 2)

	if v, ok := c.Get("issue.severity = 'error'"); !ok || v != 1 {
		t.Errorf("Get = %d, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get("issue.exists()"); ok {
		t.Error("Get should return false for missing key")
	}

	c.Set("issue.code = 'structure'", 20)
	if v, _ := c.Get("issue.code = 'structure'"); v != 20 {
		t.Errorf("Get after update = %d; want 20", v)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d; want 2", c.Len())
	}
}

func TestCache_Eviction(t *testing.T) {
	c := New[string, int](2)

	c.Set("a", 1)
	c.Set("b", 2)

	// Access 'a' to make it recently used
	c.Get("a")

	// Add 'c', should evict 'b' (least recently used)
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("'b' should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = %d, %v; want 3, true", v, ok)
	}
	if got := c.Stats().Evicts; got != 1 {
		t.Errorf("Stats.Evicts = %d; want 1", got)
	}
}

func TestCache_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string, string](10, WithTTL(time.Minute), WithClock(clock.Now))

	c.Set("ccdaReferenceValidatorConfig", "result")

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("ccdaReferenceValidatorConfig"); !ok {
		t.Error("entry should still be live before the TTL")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("ccdaReferenceValidatorConfig"); ok {
		t.Error("entry should have expired")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d; expired entry should be removed", c.Len())
	}

	stats := c.Stats()
	if stats.Expires != 1 {
		t.Errorf("Stats.Expires = %d; want 1", stats.Expires)
	}
	if stats.Misses != 1 {
		t.Errorf("Stats.Misses = %d; want 1", stats.Misses)
	}

	// Set refreshes the expiry
	c.Set("k", "v1")
	clock.Advance(45 * time.Second)
	c.Set("k", "v2")
	clock.Advance(45 * time.Second)
	if v, ok := c.Get("k"); !ok || v != "v2" {
		t.Errorf("Get(k) = %q, %v; want v2, true", v, ok)
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[string, int](3)

	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	c.Delete("missing")

	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) should return false after delete")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[string, int](3)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d; want 0", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) should return false after clear")
	}
}

func TestCache_Stats(t *testing.T) {
	c := New[string, int](2)

	c.Set("a", 1)
	c.Set("b", 2)

	c.Get("a") // hit
	c.Get("a") // hit
	c.Get("c") // miss

	stats := c.Stats()

	if stats.Size != 2 {
		t.Errorf("Stats.Size = %d; want 2", stats.Size)
	}
	if stats.Capacity != 2 {
		t.Errorf("Stats.Capacity = %d; want 2", stats.Capacity)
	}
	if stats.Hits != 2 {
		t.Errorf("Stats.Hits = %d; want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Stats.Misses = %d; want 1", stats.Misses)
	}
	if stats.Sets != 2 {
		t.Errorf("Stats.Sets = %d; want 2", stats.Sets)
	}

	expectedHitRate := 2.0 / 3.0
	if stats.HitRate < expectedHitRate-0.01 || stats.HitRate > expectedHitRate+0.01 {
		t.Errorf("Stats.HitRate = %f; want ~%f", stats.HitRate, expectedHitRate)
	}
}

func TestCache_GetOrLoad(t *testing.T) {
	c := New[string, int](2)

	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 2; i++ {
		v, err := c.GetOrLoad("a", load)
		if err != nil {
			t.Fatalf("GetOrLoad error = %v", err)
		}
		if v != 42 {
			t.Errorf("GetOrLoad = %d; want 42", v)
		}
	}
	if calls != 1 {
		t.Errorf("load called %d times; want 1", calls)
	}

	wantErr := errors.New("compile failed")
	if _, err := c.GetOrLoad("bad", func() (int, error) { return 0, wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("GetOrLoad error = %v; want %v", err, wantErr)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("failed load should not be cached")
	}
}

func TestCache_ZeroCapacity(t *testing.T) {
	c := New[int, int](0)

	for i := 0; i < DefaultCapacity+10; i++ {
		c.Set(i, i)
	}

	if c.Len() != DefaultCapacity {
		t.Errorf("Len() = %d; want %d", c.Len(), DefaultCapacity)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int, int](100)

	var wg sync.WaitGroup
	n := 100

	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Set(i, i*10)
		}(i)
		go func(i int) {
			defer wg.Done()
			c.Get(i)
		}(i)
	}

	wg.Wait()

	for i := 0; i < n; i++ {
		if v, ok := c.Get(i); ok && v != i*10 {
			t.Errorf("Get(%d) = %d; want %d", i, v, i*10)
		}
	}
}

func BenchmarkCache_Get(b *testing.B) {
	c := New[int, int](1000)
	for i := 0; i < 1000; i++ {
		c.Set(i, i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(i % 1000)
	}
}

func BenchmarkCache_Concurrent(b *testing.B) {
	c := New[int, int](1000)

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%2 == 0 {
				c.Set(i%1000, i)
			} else {
				c.Get(i % 1000)
			}
			i++
		}
	})
}
