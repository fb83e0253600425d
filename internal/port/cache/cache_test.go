package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/productapi/internal/port/cache"
)

// memCache is a map-backed Cache used to exercise the port contract.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// runComplianceTests runs the standard compliance suite against any Cache implementation.
func runComplianceTests(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "compliance-key", []byte("compliance-val"), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, "compliance-key")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != "compliance-val" {
			t.Fatalf("expected compliance-val, got %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "nonexistent-key")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "del-key", []byte("del-val"), time.Minute)
		if err := c.Delete(ctx, "del-key"); err != nil {
			t.Fatal(err)
		}
		_, found, err := c.Get(ctx, "del-key")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "never-existed"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})
}

func TestMemCacheCompliance(t *testing.T) {
	runComplianceTests(t, newMemCache())
}

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestTyped_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tc := cache.NewTyped[widget](newMemCache())

	if err := tc.Set(ctx, "w1", widget{Name: "gear", Count: 3}, time.Minute); err != nil {
		t.Fatal(err)
	}
	got, ok, err := tc.Get(ctx, "w1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Name != "gear" || got.Count != 3 {
		t.Fatalf("unexpected value %+v", got)
	}

	if err := tc.Remove(ctx, "w1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := tc.Get(ctx, "w1"); ok {
		t.Fatal("expected miss after Remove")
	}
}

func TestTyped_Absent(t *testing.T) {
	tc := cache.NewTyped[widget](newMemCache())
	got, ok, err := tc.Get(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected miss")
	}
	if got != (widget{}) {
		t.Fatalf("expected zero value, got %+v", got)
	}
}

func TestTyped_CorruptEntry(t *testing.T) {
	mc := newMemCache()
	mc.data["bad"] = []byte("{not json")
	tc := cache.NewTyped[widget](mc)

	_, ok, err := tc.Get(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected decode error")
	}
	if ok {
		t.Fatal("corrupt entry must not report a hit")
	}
}
