// Package leaderboard keeps member scores in a single Redis sorted set.
package leaderboard

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	warperrors "github.com/mirkobrombin/go-redisdemo/v1/errors"
)

// DefaultKey is the sorted set used when no key is configured.
const DefaultKey = "leaderboard"

// Entry is a member with its score.
type Entry struct {
	Member string  `json:"member"`
	Score  float64 `json:"score"`
}

// Board is a leaderboard backed by a Redis sorted set.
type Board struct {
	client *redis.Client
	key    string
}

// New returns a Board storing scores under key. An empty key selects
// DefaultKey.
func New(client *redis.Client, key string) *Board {
	if key == "" {
		key = DefaultKey
	}
	return &Board{client: client, key: key}
}

// AddScore sets the score of member, replacing any previous score.
func (b *Board) AddScore(ctx context.Context, member string, score float64) error {
	if member == "" {
		return fmt.Errorf("%w: member is empty", warperrors.ErrInvalidArgument)
	}
	return b.client.ZAdd(ctx, b.key, redis.Z{Score: score, Member: member}).Err()
}

// Top returns the n highest scores in descending order. Ties keep the
// ordering Redis applies.
func (b *Board) Top(ctx context.Context, n int64) ([]Entry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive", warperrors.ErrInvalidArgument)
	}
	zs, err := b.client.ZRevRangeWithScores(ctx, b.key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, Entry{Member: member, Score: z.Score})
	}
	return out, nil
}
