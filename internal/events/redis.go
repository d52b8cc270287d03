package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultStream = "ledger:events"

// RedisStreamPublisher appends events to a Redis stream for indexers.
type RedisStreamPublisher struct {
	redis  redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStreamPublisher creates a publisher trimming the stream to roughly maxLen entries.
func NewRedisStreamPublisher(client redis.Cmdable, stream string, maxLen int64) *RedisStreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamPublisher{redis: client, stream: stream, maxLen: maxLen}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := p.redis.Pipeline()
	for _, ev := range events {
		args := &redis.XAddArgs{
			Stream: p.stream,
			Values: map[string]any{
				"id":          ev.ID.String(),
				"kind":        ev.Kind,
				"occurred_at": ev.OccurredAt.Format(time.RFC3339Nano),
				"payload":     string(ev.Payload),
			},
		}
		if p.maxLen > 0 {
			args.MaxLen = p.maxLen
			args.Approx = true
		}
		pipe.XAdd(ctx, args)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %d events to %s: %w", len(events), p.stream, err)
	}
	return nil
}
