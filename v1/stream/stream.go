package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	warperrors "github.com/mirkobrombin/go-redisdemo/v1/errors"
	"github.com/mirkobrombin/go-redisdemo/v1/metrics"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-redisdemo/v1/stream")

// busyGroupPrefix marks the error Redis returns when a group already exists.
const busyGroupPrefix = "BUSYGROUP"

// Event is a single stream entry.
type Event struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// PendingEntry describes an event delivered to a consumer but not yet
// acknowledged.
type PendingEntry struct {
	ID         string        `json:"id"`
	Consumer   string        `json:"consumer"`
	Idle       time.Duration `json:"idle"`
	RetryCount int64         `json:"retry_count"`
}

// Gateway appends to and reads from Redis streams through consumer groups.
type Gateway struct {
	client *redis.Client
}

// NewGateway returns a Gateway using the provided Redis client.
func NewGateway(client *redis.Client) *Gateway {
	return &Gateway{client: client}
}

func spanAttrs(stream string, kv ...attribute.KeyValue) trace.SpanStartOption {
	return trace.WithAttributes(append([]attribute.KeyValue{attribute.String("redisdemo.stream", stream)}, kv...)...)
}

// Append adds an event to stream and returns the ID assigned by Redis.
// Strings are stored as is, maps and slices as JSON and anything else
// with fmt.Sprint.
func (g *Gateway) Append(ctx context.Context, stream string, fields map[string]any) (string, error) {
	if stream == "" {
		return "", fmt.Errorf("%w: stream name is empty", warperrors.ErrInvalidArgument)
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: event has no fields", warperrors.ErrInvalidArgument)
	}
	ctx, span := tracer.Start(ctx, "Gateway.Append", spanAttrs(stream))
	defer span.End()

	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = stringify(v)
	}
	id, err := g.client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Result()
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	metrics.StreamAppended.Inc()
	return id, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// EnsureGroup creates group on stream, starting from the first entry and
// creating the stream when missing. An existing group is not an error.
func (g *Gateway) EnsureGroup(ctx context.Context, stream, group string) error {
	if stream == "" || group == "" {
		return fmt.Errorf("%w: stream and group are required", warperrors.ErrInvalidArgument)
	}
	ctx, span := tracer.Start(ctx, "Gateway.EnsureGroup", spanAttrs(stream, attribute.String("redisdemo.group", group)))
	defer span.End()

	err := g.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err == nil || isBusyGroup(err) {
		return nil
	}
	span.RecordError(err)
	return err
}

func isBusyGroup(err error) bool {
	var rerr redis.Error
	if !errors.As(err, &rerr) {
		return false
	}
	return strings.HasPrefix(rerr.Error(), busyGroupPrefix)
}

// Read delivers up to count events never delivered to group, recording them
// as pending for consumer. It does not block when nothing is available.
func (g *Gateway) Read(ctx context.Context, stream, group, consumer string, count int64) ([]Event, error) {
	if err := checkRead(stream, group, consumer, count); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "Gateway.Read", spanAttrs(stream,
		attribute.String("redisdemo.group", group),
		attribute.String("redisdemo.consumer", consumer),
		attribute.Int64("redisdemo.count", count),
	))
	defer span.End()

	res, err := g.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return []Event{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	var out []Event
	for _, s := range res {
		out = append(out, toEvents(s.Messages)...)
	}
	if out == nil {
		out = []Event{}
	}
	metrics.StreamDelivered.Add(float64(len(out)))
	return out, nil
}

func checkRead(stream, group, consumer string, count int64) error {
	if stream == "" || group == "" || consumer == "" {
		return fmt.Errorf("%w: stream, group and consumer are required", warperrors.ErrInvalidArgument)
	}
	if count <= 0 {
		return fmt.Errorf("%w: count must be positive", warperrors.ErrInvalidArgument)
	}
	return nil
}

// Acknowledge removes id from the pending-entries list of group. It returns
// the number of entries removed, zero when id was not pending.
func (g *Gateway) Acknowledge(ctx context.Context, stream, group, id string) (int64, error) {
	if stream == "" || group == "" || id == "" {
		return 0, fmt.Errorf("%w: stream, group and event id are required", warperrors.ErrInvalidArgument)
	}
	ctx, span := tracer.Start(ctx, "Gateway.Acknowledge", spanAttrs(stream,
		attribute.String("redisdemo.group", group),
		attribute.String("redisdemo.event_id", id),
	))
	defer span.End()

	n, err := g.client.XAck(ctx, stream, group, id).Result()
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	metrics.StreamAcknowledged.Add(float64(n))
	return n, nil
}

// Pending lists up to count unacknowledged events of group, oldest first.
// An empty consumer lists entries of every consumer.
func (g *Gateway) Pending(ctx context.Context, stream, group, consumer string, count int64) ([]PendingEntry, error) {
	if stream == "" || group == "" {
		return nil, fmt.Errorf("%w: stream and group are required", warperrors.ErrInvalidArgument)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", warperrors.ErrInvalidArgument)
	}
	ctx, span := tracer.Start(ctx, "Gateway.Pending", spanAttrs(stream, attribute.String("redisdemo.group", group)))
	defer span.End()

	res, err := g.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   stream,
		Group:    group,
		Start:    "-",
		End:      "+",
		Count:    count,
		Consumer: consumer,
	}).Result()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out := make([]PendingEntry, 0, len(res))
	for _, p := range res {
		out = append(out, PendingEntry{ID: p.ID, Consumer: p.Consumer, Idle: p.Idle, RetryCount: p.RetryCount})
	}
	return out, nil
}

// Claim transfers to consumer up to count pending events of group that have
// been idle for at least minIdle, and returns them.
func (g *Gateway) Claim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int64) ([]Event, error) {
	if err := checkRead(stream, group, consumer, count); err != nil {
		return nil, err
	}
	if minIdle < 0 {
		return nil, fmt.Errorf("%w: min idle must not be negative", warperrors.ErrInvalidArgument)
	}
	ctx, span := tracer.Start(ctx, "Gateway.Claim", spanAttrs(stream,
		attribute.String("redisdemo.group", group),
		attribute.String("redisdemo.consumer", consumer),
	))
	defer span.End()

	msgs, _, err := g.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out := toEvents(msgs)
	metrics.StreamDelivered.Add(float64(len(out)))
	return out, nil
}

func toEvents(msgs []redis.XMessage) []Event {
	out := make([]Event, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Event{ID: m.ID, Fields: toFields(m.Values)})
	}
	return out
}

func toFields(values map[string]any) map[string]string {
	fields := make(map[string]string, len(values))
	for k, v := range values {
		fields[k] = stringify(v)
	}
	return fields
}
