package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const quotaKeyTTL = 48 * time.Hour

// RedisQuota is the shared daily quota counter, one key per quota day.
// Concurrent runs increment the same key.
type RedisQuota struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisQuota(rdb redis.UniversalClient) *RedisQuota {
	return &RedisQuota{rdb: rdb, prefix: "quota:units:"}
}

func (q *RedisQuota) key(dayStart time.Time) string {
	return fmt.Sprintf("%s%s", q.prefix, dayStart.Format("2006-01-02"))
}

// Used returns units consumed on the quota day starting at dayStart.
func (q *RedisQuota) Used(ctx context.Context, dayStart time.Time) (int, error) {
	n, err := q.rdb.Get(ctx, q.key(dayStart)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota counter: %w", err)
	}
	return n, nil
}

// Add increments the day's counter and refreshes its expiry. jobID is not
// needed; the key is shared by every run.
func (q *RedisQuota) Add(ctx context.Context, dayStart time.Time, jobID string, units int) error {
	if units <= 0 {
		return nil
	}
	key := q.key(dayStart)
	pipe := q.rdb.TxPipeline()
	pipe.IncrBy(ctx, key, int64(units))
	pipe.Expire(ctx, key, quotaKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment quota counter: %w", err)
	}
	return nil
}
