package cache

import (
	"time"
)

// Option is a function that configures a cache.
// Options are applied to a Config before the cache is built.
//
// Option 是配置缓存的函数。
// 选项在构建缓存之前应用于Config。
type Option func(*Config)

// WithBackend selects the storage backend.
//
// WithBackend 选择存储后端。
func WithBackend(backend string) Option {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithCodec selects the codec used by GetValue and SetValue.
//
// WithCodec 选择 GetValue 和 SetValue 使用的编解码器。
func WithCodec(name string) Option {
	return func(c *Config) {
		c.Codec = name
	}
}

// WithMaxEntryCount sets the maximum number of entries of the memory backend.
//
// WithMaxEntryCount 设置内存后端的最大条目数。
func WithMaxEntryCount(count int) Option {
	return func(c *Config) {
		c.MaxEntries = count
	}
}

// WithTTL sets the default time-to-live for cache entries.
//
// WithTTL 设置缓存条目的默认生存时间。
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.DefaultTTL = ttl
	}
}

// WithCleanupInterval sets how often expired entries are removed.
//
// WithCleanupInterval 设置删除过期条目的频率。
func WithCleanupInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.CleanupInterval = interval
	}
}

// WithRedis configures the redis backend and selects it.
//
// WithRedis 配置并选择redis后端。
func WithRedis(opts RedisOptions) Option {
	return func(c *Config) {
		c.Backend = BackendRedis
		c.Redis = opts
	}
}
