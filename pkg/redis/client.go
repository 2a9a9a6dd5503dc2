// Package redis provides a thin wrapper around go-redis/v9 with connection
// pooling and the list, sorted-set, and hash operations the job queue and
// job status store are built on.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sehxxnee/botbuilder/pkg/config"
)

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// LPush prepends values to a list.
func (c *Client) LPush(ctx context.Context, key string, values ...any) error {
	return c.rdb.LPush(ctx, key, values...).Err()
}

// RPush appends values to a list.
func (c *Client) RPush(ctx context.Context, key string, values ...any) error {
	return c.rdb.RPush(ctx, key, values...).Err()
}

// BRPop pops the tail of the list, blocking up to timeout. It returns
// ("", nil) when the wait expires with nothing available.
func (c *Client) BRPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	res, err := c.rdb.BRPop(ctx, timeout, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	// BRPOP returns [key, value].
	return res[1], nil
}

// LLen returns the length of a list.
func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	return c.rdb.LLen(ctx, key).Result()
}

// LRange returns the list elements in [start, stop].
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.rdb.LRange(ctx, key, start, stop).Result()
}

// ZAdd inserts a member with the given score into a sorted set.
func (c *Client) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return c.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

// ZRangeByScore returns up to count members with scores in [min, max],
// ordered by ascending score.
func (c *Client) ZRangeByScore(ctx context.Context, key string, min, max float64, count int64) ([]string, error) {
	return c.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   fmt.Sprintf("%f", min),
		Max:   fmt.Sprintf("%f", max),
		Count: count,
	}).Result()
}

// ZRem removes a member from a sorted set, reporting whether it was present.
// The removed count makes zset-to-list promotion safe with multiple workers:
// only the caller that observed a removal may push the member onwards.
func (c *Client) ZRem(ctx context.Context, key string, member string) (bool, error) {
	n, err := c.rdb.ZRem(ctx, key, member).Result()
	return n > 0, err
}

// ZCard returns the cardinality of a sorted set.
func (c *Client) ZCard(ctx context.Context, key string) (int64, error) {
	return c.rdb.ZCard(ctx, key).Result()
}

// HSet writes field/value pairs into a hash.
func (c *Client) HSet(ctx context.Context, key string, values map[string]any) error {
	return c.rdb.HSet(ctx, key, values).Err()
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, key).Result()
}

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Ping sends a PING to Redis and returns any error.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
