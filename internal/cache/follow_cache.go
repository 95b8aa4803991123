package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CountKind selects which follow count is cached
type CountKind string

const (
	Followers CountKind = "followers"
	Following CountKind = "following"
)

// FollowCountCache caches follower/following counts. A nil cache always misses.
type FollowCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFollowCountCache creates a new follow count cache
func NewFollowCountCache(client *redis.Client, ttl time.Duration) *FollowCountCache {
	return &FollowCountCache{client: client, ttl: ttl}
}

// Key returns the Redis key for a user's count
func Key(kind CountKind, userID int64) string {
	return fmt.Sprintf("follow:%s:%d", kind, userID)
}

// Get returns the cached count and whether it was present
func (c *FollowCountCache) Get(ctx context.Context, kind CountKind, userID int64) (int64, bool, error) {
	if c == nil || c.client == nil {
		return 0, false, nil
	}
	val, err := c.client.Get(ctx, Key(kind, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get cached count: %w", err)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached count %q: %w", val, err)
	}
	return n, true, nil
}

// Set stores a count with the cache TTL
func (c *FollowCountCache) Set(ctx context.Context, kind CountKind, userID, count int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, Key(kind, userID), count, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache count: %w", err)
	}
	return nil
}

// InvalidateEdge drops the two counts affected by a follow edge change
func (c *FollowCountCache) InvalidateEdge(ctx context.Context, followerID, followingID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	err := c.client.Del(ctx, Key(Following, followerID), Key(Followers, followingID)).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate counts: %w", err)
	}
	return nil
}
