package stream

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	warperrors "github.com/mirkobrombin/go-redisdemo/v1/errors"
)

// Log is a list-backed event log. Newer events are pushed to the head of
// the list, so Recent returns them newest first. It has no consumer groups
// and no acknowledgement.
type Log struct {
	client *redis.Client
}

// NewLog returns a Log using the provided Redis client.
func NewLog(client *redis.Client) *Log {
	return &Log{client: client}
}

// Record pushes event onto the log named name.
func (l *Log) Record(ctx context.Context, name, event string) error {
	if name == "" {
		return fmt.Errorf("%w: log name is empty", warperrors.ErrInvalidArgument)
	}
	return l.client.LPush(ctx, name, event).Err()
}

// Recent returns up to count of the latest events of the log.
func (l *Log) Recent(ctx context.Context, name string, count int64) ([]string, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: log name is empty", warperrors.ErrInvalidArgument)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", warperrors.ErrInvalidArgument)
	}
	return l.client.LRange(ctx, name, 0, count-1).Result()
}
