package watchbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-redisdemo/v1/stream"
)

func newTestTail(t *testing.T) (*RedisTail, *stream.Gateway) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTail(client, 50*time.Millisecond), stream.NewGateway(client)
}

func recvEvent(t *testing.T, ch <-chan []byte) stream.Event {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		var ev stream.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decode %s: %v", msg, err)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return stream.Event{}
}

func TestRedisTailDeliversNewEntries(t *testing.T) {
	tail, gw := newTestTail(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := gw.Append(ctx, "orders", map[string]any{"old": "1"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	ch, err := tail.Watch(ctx, "orders")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	id1, err := gw.Append(ctx, "orders", map[string]any{"n": 1})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	id2, err := gw.Append(ctx, "orders", map[string]any{"n": 2})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	ev := recvEvent(t, ch)
	if ev.ID != id1 || ev.Fields["n"] != "1" {
		t.Fatalf("unexpected first event %+v", ev)
	}
	ev = recvEvent(t, ch)
	if ev.ID != id2 || ev.Fields["n"] != "2" {
		t.Fatalf("unexpected second event %+v", ev)
	}
}

func TestRedisTailMissingStream(t *testing.T) {
	tail, gw := newTestTail(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := tail.Watch(ctx, "later")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	id, err := gw.Append(ctx, "later", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ev := recvEvent(t, ch); ev.ID != id {
		t.Fatalf("expected %s, got %s", id, ev.ID)
	}
}

func TestRedisTailClosesOnCancel(t *testing.T) {
	tail, _ := newTestTail(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := tail.Watch(ctx, "orders")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestRedisTailCloseEndsWatches(t *testing.T) {
	tail, _ := newTestTail(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chs := make([]<-chan []byte, 0, 2)
	for _, key := range []string{"orders", "payments"} {
		ch, err := tail.Watch(ctx, key)
		if err != nil {
			t.Fatalf("watch %s: %v", key, err)
		}
		chs = append(chs, ch)
	}
	tail.Close()
	tail.Close()

	for i, ch := range chs {
		select {
		case _, ok := <-ch:
			if ok {
				t.Fatalf("watch %d: expected closed channel", i)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("watch %d: channel not closed after Close", i)
		}
	}
	if ctx.Err() != nil {
		t.Fatal("Close must not cancel the caller's context")
	}
	if _, err := tail.Watch(ctx, "orders"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
