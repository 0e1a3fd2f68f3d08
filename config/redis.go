package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis connects RedisClient. REDIS_URL is honoured when addr is empty.
func InitRedis(addr string) error {
	opt, err := redisOptions(addr)
	if err != nil {
		return err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}

	RedisClient = client
	return nil
}

// redisOptions accepts host:port or a redis:// / rediss:// URL.
func redisOptions(addr string) (*redis.Options, error) {
	val := strings.TrimSpace(addr)
	if val == "" {
		val = strings.TrimSpace(os.Getenv("REDIS_URL"))
	}
	if val == "" {
		return nil, errors.New("REDIS_ADDR (or REDIS_URL) is not set")
	}
	if strings.HasPrefix(val, "redis://") || strings.HasPrefix(val, "rediss://") {
		return redis.ParseURL(val)
	}
	return &redis.Options{
		Addr:         val,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second, // above the 5s XREADGROUP block
		WriteTimeout: 3 * time.Second,
	}, nil
}
