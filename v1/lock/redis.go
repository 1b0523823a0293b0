package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Redis implements Locker using SET NX with an expiry.
type Redis struct {
	client *redis.Client
}

// NewRedis returns a new Redis locker using the provided client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// TryLock implements Locker.TryLock. The key is set to a fresh holder token
// only if it does not exist, so acquisition is decided by one atomic
// command.
func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := validate(key, ttl); err != nil {
		return false, err
	}
	ctx, span := tracer.Start(ctx, "Redis.TryLock", trace.WithAttributes(attribute.String("redisdemo.lock.key", key)))
	defer span.End()

	ok, err := r.client.SetNX(ctx, key, uuid.NewString(), ttl).Result()
	observe(ok, err)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return ok, nil
}
