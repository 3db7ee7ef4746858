// Package cache provides Redis read-through caching in front of the catalog
// repository.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aidledger-audit/internal/domain/catalog"
)

const itemKeysKey = "catalog:items"

var _ catalog.Repository = (*CatalogCache)(nil)

// CatalogCache serves catalog item keys from a Redis set and falls back to the
// wrapped repository on a miss or a Redis failure. Location and actor lookups
// pass straight through.
type CatalogCache struct {
	client *redis.Client
	next   catalog.Repository
	ttl    time.Duration
	logger *slog.Logger
}

// NewCatalogCache wraps next with a Redis-backed item key cache
func NewCatalogCache(logger *slog.Logger, client *redis.Client, next catalog.Repository, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CatalogCache) GetLocation(ctx context.Context, id uuid.UUID) (*catalog.Location, error) {
	return c.next.GetLocation(ctx, id)
}

func (c *CatalogCache) GetActor(ctx context.Context, id uuid.UUID) (*catalog.Actor, error) {
	return c.next.GetActor(ctx, id)
}

// ListItemKeys returns the catalog item keys, sorted
func (c *CatalogCache) ListItemKeys(ctx context.Context) ([]string, error) {
	keys, err := c.client.SMembers(ctx, itemKeysKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("Catalog cache read failed, using database", "error", err)
	}
	if err == nil && len(keys) > 0 {
		sort.Strings(keys)
		return keys, nil
	}

	keys, err = c.next.ListItemKeys(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, keys)

	return keys, nil
}

// Invalidate drops the cached item keys
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, itemKeysKey).Err()
}

func (c *CatalogCache) store(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}

	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}

	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, itemKeysKey, members...)
		pipe.Expire(ctx, itemKeysKey, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn("Failed to populate catalog cache", "error", err)
	}
}
