package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DedupGate is a fast-path guard in front of the notification store. Postgres
// stays authoritative: any redis failure lets the caller through.
type DedupGate struct {
	rdb redis.Cmdable
	log *zap.Logger
}

func NewDedupGate(rdb redis.Cmdable, log *zap.Logger) *DedupGate {
	return &DedupGate{rdb: rdb, log: log.With(zap.String("component", "redis.dedup"))}
}

func DedupKey(recipientID int64, typ, dedupKey string, day time.Time) string {
	return fmt.Sprintf("dedup:%d:%s:%s:%s", recipientID, typ, dedupKey, day.Format(time.DateOnly))
}

// Acquire returns false only when redis positively reports the key as taken.
// The key expires at the end of day, in day's location.
func (g *DedupGate) Acquire(ctx context.Context, key string, day time.Time) bool {
	ttl := time.Until(day.AddDate(0, 0, 1))
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := g.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		g.log.Warn("setnx failed, passing through", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

func (g *DedupGate) Release(ctx context.Context, key string) {
	if err := g.rdb.Del(ctx, key).Err(); err != nil {
		g.log.Warn("release failed", zap.String("key", key), zap.Error(err))
	}
}
