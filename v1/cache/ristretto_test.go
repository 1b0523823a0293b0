package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// newRistrettoCache returns a Ristretto-backed cache for testing.
func newRistrettoCache[T any](t *testing.T) (*RistrettoCache[T], context.Context) {
	t.Helper()
	c, err := NewRistretto[T]()
	if err != nil {
		t.Fatalf("new ristretto: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, context.Background()
}

func TestRistrettoCacheGetSetInvalidate(t *testing.T) {
	c, ctx := newRistrettoCache[string](t)

	if err := c.Set(ctx, "foo", "bar", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := c.Get(ctx, "foo"); err != nil || !ok || v != "bar" {
		t.Fatalf("Get: expected bar, got %v err %v", v, err)
	}
	if err := c.Invalidate(ctx, "foo"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, err := c.Get(ctx, "foo"); ok || err != nil {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestRistrettoCacheExpiration(t *testing.T) {
	c, ctx := newRistrettoCache[string](t)

	if err := c.Set(ctx, "foo", "bar", 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok, err := c.Get(ctx, "foo"); ok || err != nil {
		t.Fatalf("expected key to expire")
	}
}

func TestRistrettoCacheContext(t *testing.T) {
	c, _ := newRistrettoCache[string](t)

	ctxSet, cancelSet := context.WithCancel(context.Background())
	cancelSet()
	if err := c.Set(ctxSet, "a", "b", time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
	if _, ok, err := c.Get(context.Background(), "a"); ok || err != nil {
		t.Fatalf("item should not be stored when context is canceled")
	}
	if _, _, err := c.Get(ctxSet, "a"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error on Get, got %v", err)
	}
}

func TestRistrettoMaxEntriesIsEntryBudget(t *testing.T) {
	c, err := NewRistretto[string](WithMaxEntries(100))
	if err != nil {
		t.Fatalf("new ristretto: %v", err)
	}
	t.Cleanup(c.Close)
	ctx := context.Background()

	const n = 50
	for i := 0; i < n; i++ {
		if err := c.Set(ctx, fmt.Sprintf("k%d", i), "v", time.Minute); err != nil {
			t.Fatalf("Set k%d: %v", i, err)
		}
	}
	kept := 0
	for i := 0; i < n; i++ {
		if _, ok, err := c.Get(ctx, fmt.Sprintf("k%d", i)); err == nil && ok {
			kept++
		}
	}
	if kept != n {
		t.Fatalf("WithMaxEntries(100): stored %d, kept %d", n, kept)
	}
}
