package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type countingRecorder struct {
	mu           sync.Mutex
	hits, misses map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{hits: map[string]int{}, misses: map[string]int{}}
}

func (r *countingRecorder) CacheHit(name string) {
	r.mu.Lock()
	r.hits[name]++
	r.mu.Unlock()
}

func (r *countingRecorder) CacheMiss(name string) {
	r.mu.Lock()
	r.misses[name]++
	r.mu.Unlock()
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache[string](3, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	c.Get("a") // a becomes most recent, b is now oldest
	c.Set("d", "4")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s should still be cached", k)
		}
	}
	if c.Size() != 3 {
		t.Fatalf("size = %d, want 3", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("x", 1)
	c.Set("y", 2)
	if v, ok := c.Get("x"); !ok || v != 1 {
		t.Fatalf("Get(x) = %d, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	c.Set("z", 3)
	if removed := c.CleanExpired(); removed != 2 {
		t.Fatalf("CleanExpired removed %d, want 2", removed)
	}
	if _, ok := c.Get("z"); !ok {
		t.Fatal("fresh entry removed")
	}
}

func TestLRURecorder(t *testing.T) {
	rec := newCountingRecorder()
	c := NewLRUCache[int](2, time.Hour).Observe("budget", rec)

	c.Get("missing")
	c.Set("k", 1)
	c.Get("k")
	c.Get("k")
	c.Delete("k")
	c.Get("k")

	if rec.hits["budget"] != 2 || rec.misses["budget"] != 2 {
		t.Fatalf("hits=%d misses=%d", rec.hits["budget"], rec.misses["budget"])
	}
}

func TestManagerStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewLRUCache[int](10, time.Nanosecond)
	c.Set("k", 1)

	m := NewManager(nil)
	m.Register(c)
	m.StartCleanup(context.Background(), time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for c.Size() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()

	if c.Size() != 0 {
		t.Fatal("expired entry was not swept")
	}
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	m.Stop()
	if n := m.Sweep(); n != 0 {
		t.Fatalf("Sweep on empty manager = %d", n)
	}
}
