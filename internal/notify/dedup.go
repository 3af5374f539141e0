package notify

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers keys for a while so repeated alerts can be suppressed.
type Deduper interface {
	// FirstSeen reports true the first time key is seen within ttl.
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDeduper implements Deduper with SET NX.
type RedisDeduper struct {
	client *redis.Client
	prefix string
}

// NewRedisDeduper builds a deduper storing keys under "<prefix>:".
func NewRedisDeduper(client *redis.Client, prefix string) *RedisDeduper {
	if prefix == "" {
		prefix = "sla:dedup"
	}
	return &RedisDeduper{client: client, prefix: prefix}
}

// FirstSeen sets the key if absent.
func (d *RedisDeduper) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if d == nil || d.client == nil {
		return false, errors.New("redis client not configured")
	}
	return d.client.SetNX(ctx, d.prefix+":"+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}
