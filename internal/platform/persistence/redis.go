package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aidledger-audit/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the go-redis client used for read-through caches
type RedisClient struct {
	*redis.Client
	logger *slog.Logger
}

// NewRedisClient connects to Redis. It returns nil, nil when no URL is
// configured so callers can treat the cache as optional.
func NewRedisClient(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (*RedisClient, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("Connected to Redis", "addr", opts.Addr)
	return &RedisClient{Client: client, logger: logger}, nil
}

// Close closes the Redis connection pool
func (c *RedisClient) Close() error {
	if err := c.Client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	c.logger.Info("Closed Redis connection")
	return nil
}
