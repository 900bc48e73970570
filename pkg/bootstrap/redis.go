package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"kadrisk/internal/config"
	"kadrisk/internal/logger"
)

// InitRedis connects the optional L2 cache. It returns nil when Redis is
// disabled.
func InitRedis(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Infow("Redis connected", "addr", rdb.Options().Addr, "db", cfg.DB)
	return rdb, nil
}

func CloseRedis(rdb *redis.Client) []error {
	if rdb == nil {
		return nil
	}
	if err := rdb.Close(); err != nil {
		return []error{fmt.Errorf("redis close error: %w", err)}
	}
	return nil
}
