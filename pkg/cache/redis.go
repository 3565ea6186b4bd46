package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache stores entries in redis under a key prefix. Clear and Stats
// only touch keys carrying that prefix.
//
// redisCache 以键前缀将条目存储在redis中。Clear 和 Stats 只处理带有该前缀的键。
type redisCache struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
}

// NewRedis wraps an existing redis client.
//
// NewRedis 包装一个已有的redis客户端。
func NewRedis(client redis.UniversalClient, prefix string, defaultTTL time.Duration) ICache {
	return &redisCache{client: client, prefix: prefix, defaultTTL: defaultTTL}
}

// DialRedis connects to redis and verifies the connection with PING.
//
// DialRedis 连接redis并使用PING验证连接。
func DialRedis(ctx context.Context, opts RedisOptions, defaultTTL time.Duration) (ICache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedis(client, opts.KeyPrefix, defaultTTL), nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	c.hits.Add(1)
	return data, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	switch {
	case ttl == 0:
		ttl = c.defaultTTL
	case ttl < 0:
		ttl = 0
	}
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, c.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *redisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *redisCache) Stats(ctx context.Context) (*Stats, error) {
	var count int64
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return &Stats{
		EntryCount: count,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
	}, nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
