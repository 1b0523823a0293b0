package leaderboard

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	warperrors "github.com/mirkobrombin/go-redisdemo/v1/errors"
)

func newBoard(t *testing.T) (*Board, context.Context) {
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
	return New(client, ""), context.Background()
}

func TestTopAfterUpsert(t *testing.T) {
	b, ctx := newBoard(t)
	for _, e := range []Entry{{"a", 10}, {"b", 20}, {"a", 15}} {
		if err := b.AddScore(ctx, e.Member, e.Score); err != nil {
			t.Fatalf("add score: %v", err)
		}
	}
	got, err := b.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []Entry{{"b", 20}, {"a", 15}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTopMoreThanMembers(t *testing.T) {
	b, ctx := newBoard(t)
	if err := b.AddScore(ctx, "solo", 1); err != nil {
		t.Fatalf("add score: %v", err)
	}
	got, err := b.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %v", got)
	}
}

func TestTopEmptyBoard(t *testing.T) {
	b, ctx := newBoard(t)
	got, err := b.Top(ctx, 3)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty board, got %v", got)
	}
}

func TestInvalidArguments(t *testing.T) {
	b, ctx := newBoard(t)
	if err := b.AddScore(ctx, "", 1); !errors.Is(err, warperrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := b.Top(ctx, 0); !errors.Is(err, warperrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
