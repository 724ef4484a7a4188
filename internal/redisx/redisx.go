package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Dedup of consumed saga events: dedup:{consumer_group}:{message_id}
	keyDedup = "dedup:%s:%s"
)

var TTLDedup = 48 * time.Hour

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// AlreadySeen reports whether message_id was already handled by the given
// consumer group. Best effort: on any Redis error it reports false, leaving
// the authoritative dedup to the processed-messages table.
func AlreadySeen(ctx context.Context, rdb *redis.Client, group, messageID string) bool {
	if rdb == nil || messageID == "" {
		return false
	}
	n, err := rdb.Exists(ctx, fmt.Sprintf(keyDedup, group, messageID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// MarkSeen records message_id after a successful handling, so a redelivery can
// be skipped without a round-trip to the database.
func MarkSeen(ctx context.Context, rdb *redis.Client, group, messageID string) {
	if rdb == nil || messageID == "" {
		return
	}
	_ = rdb.Set(ctx, fmt.Sprintf(keyDedup, group, messageID), "1", TTLDedup).Err()
}
