package stream

import (
	"context"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func TestLogRecentNewestFirst(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewLog(client)
	ctx := context.Background()
	for _, e := range []string{"created", "paid", "shipped"} {
		if err := l.Record(ctx, "order:1", e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	got, err := l.Recent(ctx, "order:1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if want := []string{"shipped", "paid"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
