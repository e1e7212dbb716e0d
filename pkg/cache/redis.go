package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is the Redis-backed cache implementation, for deployments running
// more than one API instance. Keys are namespaced per user as
// dash:<userID>:<name>; TTL is enforced server-side by Redis expiry.
type Redis struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(addr, password string, db int, ttl time.Duration) (*Redis, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func redisKey(userID int64, name string) string {
	return fmt.Sprintf("dash:%d:%s", userID, name)
}

// Get implements Cache.
func (c *Redis) Get(ctx context.Context, userID int64, name string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, redisKey(userID, name)).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	c.hits.Add(1)
	return payload, true, nil
}

// Set implements Cache.
func (c *Redis) Set(ctx context.Context, userID int64, name string, payload []byte) error {
	if err := c.client.Set(ctx, redisKey(userID, name), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// InvalidateUser implements Cache by scanning the user's key namespace.
func (c *Redis) InvalidateUser(ctx context.Context, userID int64) error {
	pattern := fmt.Sprintf("dash:%d:*", userID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// InvalidateAll implements Cache.
func (c *Redis) InvalidateAll(ctx context.Context) error {
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("failed to flush cache: %w", err)
	}
	return nil
}

// Stats implements Cache.
func (c *Redis) Stats(ctx context.Context) (Stats, error) {
	size, err := c.client.DBSize(ctx).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache size: %w", err)
	}
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: size,
	}, nil
}

// Close releases the Redis connection.
func (c *Redis) Close() error {
	return c.client.Close()
}

// Client exposes the underlying connection for health probing.
func (c *Redis) Client() *redis.Client {
	return c.client
}
