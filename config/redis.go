package config

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// NewRedis accepts a host:port or a redis:// / rediss:// URL.
func NewRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(cfg.RedisAddr, "redis://") || strings.HasPrefix(cfg.RedisAddr, "rediss://") {
		opt, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
