package bgcheck

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultRegistryKey = "tank-monitor:periodic-sync"

type Registrar interface {
	Register(ctx context.Context, tag string, minInterval time.Duration) error
	Unregister(ctx context.Context, tag string) error
}

// RedisRegistry stores periodic task registrations as tag -> min interval (ms)
// in one redis hash, so the worker sees them without the dashboard running.
type RedisRegistry struct {
	rdb *redis.Client
	key string
}

func NewRedisRegistry(rdb *redis.Client, key string) *RedisRegistry {
	if key == "" {
		key = DefaultRegistryKey
	}
	return &RedisRegistry{rdb: rdb, key: key}
}

func (r *RedisRegistry) Register(ctx context.Context, tag string, minInterval time.Duration) error {
	return r.rdb.HSet(ctx, r.key, tag, minInterval.Milliseconds()).Err()
}

func (r *RedisRegistry) Unregister(ctx context.Context, tag string) error {
	return r.rdb.HDel(ctx, r.key, tag).Err()
}

func (r *RedisRegistry) Registrations(ctx context.Context) (map[string]time.Duration, error) {
	raw, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Duration, len(raw))
	for tag, v := range raw {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms <= 0 {
			// Not written by Register
			continue
		}
		out[tag] = time.Duration(ms) * time.Millisecond
	}
	return out, nil
}
