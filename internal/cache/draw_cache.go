// Package cache provides the Redis read cache for draws.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/drawclub/draw-promo-service/internal/model"
)

// DrawCache stores draws as JSON blobs keyed by ID.
type DrawCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewDrawCache creates a DrawCache. Entries expire after ttl.
func NewDrawCache(client redis.Cmdable, ttl time.Duration) *DrawCache {
	return &DrawCache{client: client, ttl: ttl}
}

func (c *DrawCache) key(id uuid.UUID) string { return "draw:id:" + id.String() }

// Get returns the cached draw, or nil, nil on a miss.
func (c *DrawCache) Get(ctx context.Context, id uuid.UUID) (*model.Draw, error) {
	b, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached draw %s: %w", id, err)
	}

	var d model.Draw
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode cached draw %s: %w", id, err)
	}
	return &d, nil
}

// Set stores the draw. Status is derived per read and is not cached.
func (c *DrawCache) Set(ctx context.Context, d *model.Draw) error {
	stored := *d
	stored.Status = ""

	b, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode draw %s: %w", d.ID, err)
	}
	if err := c.client.Set(ctx, c.key(d.ID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached draw %s: %w", d.ID, err)
	}
	return nil
}

// Invalidate removes the cached entry for the draw.
func (c *DrawCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("invalidate cached draw %s: %w", id, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *DrawCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
