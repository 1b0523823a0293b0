package watchbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-redisdemo/v1/metrics"
	"github.com/mirkobrombin/go-redisdemo/v1/stream"
)

const (
	defaultBlock = time.Second
	retryDelay   = time.Second
)

// ErrClosed is returned by Watch once the tail has been closed.
var ErrClosed = errors.New("watchbus: closed")

// RedisTail implements WatchBus by tailing a Redis stream with XREAD. Each
// message is the JSON encoding of a stream.Event. Tailing does not touch
// consumer groups, so it never changes what a group will be delivered.
type RedisTail struct {
	client *redis.Client
	block  time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewRedisTail creates a RedisTail using the provided client. block bounds
// each XREAD call; zero selects one second.
func NewRedisTail(client *redis.Client, block time.Duration) *RedisTail {
	if block <= 0 {
		block = defaultBlock
	}
	return &RedisTail{client: client, block: block, done: make(chan struct{})}
}

// Close ends every running watch by closing its channel. Later calls to
// Watch fail with ErrClosed. Close is safe to call more than once.
func (b *RedisTail) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Watch starts after the newest entry present when it is called.
func (b *RedisTail) Watch(ctx context.Context, key string) (<-chan []byte, error) {
	select {
	case <-b.done:
		return nil, ErrClosed
	default:
	}
	lastID, err := b.lastID(ctx, key)
	if err != nil {
		return nil, err
	}
	ch := make(chan []byte, 1)
	metrics.TailWatchers.Inc()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-b.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		defer metrics.TailWatchers.Dec()
		defer close(ch)
		defer cancel()
		for {
			if ctx.Err() != nil {
				return
			}
			res, err := b.client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{key, lastID},
				Block:   b.block,
				Count:   100,
			}).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case <-time.After(retryDelay):
				case <-ctx.Done():
					return
				}
				continue
			}
			for _, s := range res {
				for _, msg := range s.Messages {
					lastID = msg.ID
					fields := make(map[string]string, len(msg.Values))
					for k, v := range msg.Values {
						fields[k], _ = v.(string)
					}
					data, err := json.Marshal(stream.Event{ID: msg.ID, Fields: fields})
					if err != nil {
						continue
					}
					select {
					case ch <- data:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch, nil
}

func (b *RedisTail) lastID(ctx context.Context, key string) (string, error) {
	msgs, err := b.client.XRevRangeN(ctx, key, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	if len(msgs) == 0 {
		return "0-0", nil
	}
	return msgs[0].ID, nil
}
