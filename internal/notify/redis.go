package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"team-stock-exchange/internal/domain"
)

// Redis key layout.
const (
	SnapshotKeyPrefix = "stock:"
	ChannelPrefix     = "prices."
)

// RedisPublisher stores the latest update of each symbol under stock:<SYMBOL>
// and publishes it on prices.<SYMBOL>.
type RedisPublisher struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisPublisher creates a publisher. ttl <= 0 keeps snapshots forever.
func NewRedisPublisher(client redis.Cmdable, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{client: client, ttl: ttl}
}

// Notify implements Notifier. A report is written in a single pipeline so
// the snapshot and the published message never disagree.
func (p *RedisPublisher) Notify(ctx context.Context, report domain.TickReport) error {
	updates := Updates(report)
	if len(updates) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, u := range updates {
		payload, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal update %s: %w", u.Symbol, err)
		}
		pipe.Set(ctx, SnapshotKeyPrefix+u.Symbol, payload, p.ttl)
		pipe.Publish(ctx, ChannelPrefix+u.Symbol, payload)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}
