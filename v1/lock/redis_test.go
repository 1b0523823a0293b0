package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newRedisLocker(t *testing.T) (*Redis, *miniredis.Miniredis, context.Context) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return NewRedis(client), mr, context.Background()
}

func TestRedisTryLockSetsExpiringKey(t *testing.T) {
	l, mr, ctx := newRedisLocker(t)

	ok, err := l.TryLock(ctx, "k", 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("trylock: %v ok %v", err, ok)
	}
	if !mr.Exists("k") {
		t.Fatal("expected lock key to exist")
	}
	if ttl := mr.TTL("k"); ttl != 10*time.Second {
		t.Fatalf("expected ttl 10s, got %v", ttl)
	}
	if ok, err := l.TryLock(ctx, "k", 10*time.Second); err != nil || ok {
		t.Fatalf("expected lock held, ok %v err %v", ok, err)
	}
}

func TestRedisLockLeaseExpires(t *testing.T) {
	l, mr, ctx := newRedisLocker(t)

	if ok, err := l.TryLock(ctx, "k", 5*time.Second); err != nil || !ok {
		t.Fatalf("trylock: %v ok %v", err, ok)
	}
	mr.FastForward(5 * time.Second)
	if ok, err := l.TryLock(ctx, "k", 5*time.Second); err != nil || !ok {
		t.Fatalf("expected lock re-acquired after lease, ok %v err %v", ok, err)
	}
}

func TestRedisConcurrentSingleWinner(t *testing.T) {
	l1, _, ctx := newRedisLocker(t)
	l2 := NewRedis(l1.client)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		l := l1
		if i%2 == 1 {
			l = l2
		}
		go func() {
			defer wg.Done()
			ok, err := l.TryLock(ctx, "shared", time.Minute)
			if err != nil {
				t.Errorf("trylock: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestRedisTryLockStoreError(t *testing.T) {
	l, mr, ctx := newRedisLocker(t)
	mr.SetError("ERR server unavailable")
	defer mr.SetError("")

	if ok, err := l.TryLock(ctx, "k", time.Second); err == nil || ok {
		t.Fatalf("expected store error to propagate, ok %v err %v", ok, err)
	}
}
