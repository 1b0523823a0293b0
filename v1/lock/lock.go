package lock

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	warperrors "github.com/mirkobrombin/go-redisdemo/v1/errors"
	"github.com/mirkobrombin/go-redisdemo/v1/metrics"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-redisdemo/v1/lock")

// Locker claims named leases.
type Locker interface {
	// TryLock attempts to obtain the lock without waiting. It returns true
	// when the lock was acquired and false when another holder owns it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

func validate(key string, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("%w: lock key is empty", warperrors.ErrInvalidArgument)
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: lock ttl must be positive", warperrors.ErrInvalidArgument)
	}
	return nil
}

func observe(ok bool, err error) {
	switch {
	case err != nil:
		metrics.LockAttempts.WithLabelValues("error").Inc()
	case ok:
		metrics.LockAttempts.WithLabelValues("acquired").Inc()
	default:
		metrics.LockAttempts.WithLabelValues("held").Inc()
	}
}

// Do runs fn while holding the lock for key. When the lock is held
// elsewhere fn is not run and Do returns false. An error returned by fn is
// counted and handed back to the caller; the lease is not released and
// expires on its own.
func Do(ctx context.Context, l Locker, key string, ttl time.Duration, fn func(context.Context) error) (bool, error) {
	ctx, span := tracer.Start(ctx, "lock.Do", trace.WithAttributes(attribute.String("redisdemo.lock.key", key)))
	defer span.End()

	ok, err := l.TryLock(ctx, key, ttl)
	if err != nil || !ok {
		span.SetAttributes(attribute.Bool("redisdemo.lock.acquired", false))
		return false, err
	}
	span.SetAttributes(attribute.Bool("redisdemo.lock.acquired", true))
	if err := fn(ctx); err != nil {
		metrics.LockSectionFailures.Inc()
		span.RecordError(err)
		return true, err
	}
	return true, nil
}
