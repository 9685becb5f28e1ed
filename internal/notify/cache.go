package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const unreadCountTTL = time.Minute

// Cache holds unread-notification counts in Redis. A cold or unreachable
// cache degrades to counting in PostgreSQL.
type Cache struct {
	client *redis.Client
}

// NewCache constructs a cache over the given Redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func unreadKey(userID int64) string {
	return fmt.Sprintf("notify:unread:%d", userID)
}

// UnreadCount returns the cached count, or ok=false on miss.
func (c *Cache) UnreadCount(ctx context.Context, userID int64) (int64, bool, error) {
	raw, err := c.client.Get(ctx, unreadKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return count, true, nil
}

// SetUnreadCount stores the count with a short TTL.
func (c *Cache) SetUnreadCount(ctx context.Context, userID, count int64) error {
	return c.client.Set(ctx, unreadKey(userID), count, unreadCountTTL).Err()
}

// Invalidate drops the cached count after any write that changes it.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, unreadKey(userID)).Err()
}
