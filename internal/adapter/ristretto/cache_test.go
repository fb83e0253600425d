package ristretto

import (
	"context"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(1, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCache_SetGetDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "product:1", []byte(`{"id":"1"}`), 0); err != nil {
		t.Fatal(err)
	}
	val, ok, err := c.Get(ctx, "product:1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(val) != `{"id":"1"}` {
		t.Fatalf("unexpected value %s", val)
	}

	if err := c.Delete(ctx, "product:1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "product:1"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestCache_DeleteMissing(t *testing.T) {
	c := newTestCache(t)
	if err := c.Delete(context.Background(), "absent"); err != nil {
		t.Fatalf("delete of missing key: %v", err)
	}
}

func TestCache_ValuesAreCopied(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	in := []byte("abc")
	if err := c.Set(ctx, "k", in, time.Minute); err != nil {
		t.Fatal(err)
	}
	in[0] = 'x'

	out, ok, _ := c.Get(ctx, "k")
	if !ok || string(out) != "abc" {
		t.Fatalf("stored value changed through caller slice: %q", out)
	}
	out[1] = 'y'
	again, _, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value changed through returned slice: %q", again)
	}
}

func TestCache_TTLExpires(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "short", []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Fatal("expected entry to expire")
	}
}
