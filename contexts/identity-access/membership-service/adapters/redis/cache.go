package redisadapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"societyhub/contexts/identity-access/membership-service/domain/entities"
	"societyhub/contexts/identity-access/membership-service/ports"

	"github.com/redis/go-redis/v9"
)

const (
	valueActive   = "1"
	valueInactive = "0"
)

// Cache implements ports.MembershipCache on Redis. Each answer is stored as
// a single string key that expires on its own.
type Cache struct {
	client redis.Cmdable
	prefix string
}

func NewCache(client redis.Cmdable, prefix string) *Cache {
	if prefix == "" {
		prefix = "membership"
	}
	return &Cache{client: client, prefix: prefix}
}

// NewClient builds the Redis client used by the cache.
func NewClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (c *Cache) Get(ctx context.Context, key entities.MembershipKey, _ time.Time) (bool, bool, error) {
	value, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return value == valueActive, true, nil
}

func (c *Cache) Set(ctx context.Context, key entities.MembershipKey, active bool, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	value := valueInactive
	if active {
		value = valueActive
	}
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, key entities.MembershipKey) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *Cache) key(key entities.MembershipKey) string {
	key = key.Normalize()
	return fmt.Sprintf("%s:%s:%s", c.prefix, key.SocietyID, key.UserID)
}

var _ ports.MembershipCache = (*Cache)(nil)
