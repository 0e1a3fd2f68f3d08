package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores JSON values. A value that no longer decodes is treated
// as a miss and removed.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}

	if json.Unmarshal(raw, dst) != nil {
		_ = c.rdb.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

// SetJSON skips the write for ttl <= 0 so entries never outlive their source.
func (c *RedisCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.SetArgs(ctx, key, raw, redis.SetArgs{TTL: ttl}).Err()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) > 0 {
		return c.rdb.Unlink(ctx, keys...).Err()
	}
	return nil
}
