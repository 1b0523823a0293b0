package lock

import (
	"context"
	"sync"
	"time"
)

// InMemory implements Locker using local memory. It only coordinates
// callers inside one process and is meant for single-node runs.
type InMemory struct {
	mu    sync.Mutex
	locks map[string]time.Time
	now   func() time.Time
}

// NewInMemory returns a new in-memory locker.
func NewInMemory() *InMemory {
	return &InMemory{locks: make(map[string]time.Time), now: time.Now}
}

// TryLock implements Locker.TryLock.
func (l *InMemory) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := validate(key, ttl); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if exp, ok := l.locks[key]; ok && now.Before(exp) {
		observe(false, nil)
		return false, nil
	}
	l.locks[key] = now.Add(ttl)
	l.sweep(now)
	observe(true, nil)
	return true, nil
}

// sweep drops expired leases. Must be called with mu held.
func (l *InMemory) sweep(now time.Time) {
	for k, exp := range l.locks {
		if !now.Before(exp) {
			delete(l.locks, k)
		}
	}
}
