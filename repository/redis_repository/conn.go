package redis_repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/newsrag/config"
)

// Conn opens and pings a redis connection. A connection URL wins over
// discrete host/port settings when both are present.
func Conn(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	var client *redis.Client
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			DialTimeout: cfg.Timeout,
			Password:    cfg.Pass,
			DB:          cfg.DB,
		})
	}

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	if pong != "PONG" {
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}

	return client, nil
}
