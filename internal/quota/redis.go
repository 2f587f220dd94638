package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// RedisGate counts in Redis so several API processes share one budget.
// Keys are per day and expire at the next local midnight.
type RedisGate struct {
	client rueidis.Client
	prefix string
}

func NewRedisGate(client rueidis.Client) *RedisGate {
	return &RedisGate{client: client, prefix: "quota"}
}

func (g *RedisGate) key(userID string, kind Kind, now time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", g.prefix, kind, userID, now.Format("20060102"))
}

func (g *RedisGate) Consume(ctx context.Context, _ Counters, userID string, kind Kind, limit int, now time.Time) error {
	key := g.key(userID, kind, now)

	n, err := g.client.Do(ctx, g.client.B().Incr().Key(key).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("incr %s: %w", key, err)
	}
	if n == 1 {
		expire := g.client.B().Expireat().Key(key).Timestamp(NextMidnight(now).Unix()).Build()
		if err := g.client.Do(ctx, expire).Error(); err != nil {
			return fmt.Errorf("expireat %s: %w", key, err)
		}
	}
	if n > int64(limit) {
		if err := g.client.Do(ctx, g.client.B().Decr().Key(key).Build()).Error(); err != nil {
			return fmt.Errorf("decr %s: %w", key, err)
		}
		return ErrExceeded
	}
	return nil
}
