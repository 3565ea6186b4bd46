package cache

import (
	"fmt"
	"time"

	"github.com/Humphrey-He/storefront/configs"
	"github.com/Humphrey-He/storefront/pkg/codec"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config defines the configuration options for a cache instance.
//
// Config 定义缓存实例的配置选项。
type Config struct {
	// Name of the cache instance, used in logs
	// 缓存实例的名称，用于日志记录
	Name string `json:"name" yaml:"name"`

	// Backend selects the storage: "memory" or "redis"
	// Backend 选择存储："memory" 或 "redis"
	Backend string `json:"backend" yaml:"backend"`

	// Codec names the serialization used by GetValue and SetValue
	// Codec 指定 GetValue 和 SetValue 使用的序列化方式
	Codec string `json:"codec" yaml:"codec"`

	// MaxEntries caps the memory backend; the oldest entry is evicted first.
	// If set to 0, there is no limit on the number of entries
	//
	// MaxEntries 限制内存后端的条目数，最早写入的条目最先被淘汰。
	// 如果设置为0，则条目数量没有限制
	MaxEntries int `json:"max_entries" yaml:"max_entries"`

	// DefaultTTL is the time-to-live used when Set is given a zero TTL.
	// If set to 0, entries don't expire by default
	//
	// DefaultTTL 是Set传入零TTL时使用的生存时间。
	// 如果设置为0，则条目默认不过期
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`

	// CleanupInterval is the interval at which the memory backend drops expired items.
	// If set to 0, expired items are only dropped when read
	//
	// CleanupInterval 是内存后端清理过期项目的时间间隔。
	// 如果设置为0，过期项目仅在读取时删除
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`

	// Redis holds the connection settings of the redis backend
	// Redis 保存redis后端的连接设置
	Redis RedisOptions `json:"redis" yaml:"redis"`
}

// RedisOptions holds the redis connection settings.
//
// RedisOptions 保存redis连接设置。
type RedisOptions struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// NewDefaultConfig returns an in-memory configuration with a one minute TTL.
//
// NewDefaultConfig 返回一个TTL为一分钟的内存缓存配置。
//
// Returns:
//   - *Config: A new configuration instance with default values
func NewDefaultConfig() *Config {
	return &Config{
		Name:            "storefront",
		Backend:         BackendMemory,
		Codec:           codec.JSON,
		MaxEntries:      10000,
		DefaultTTL:      time.Minute,
		CleanupInterval: 30 * time.Second,
		Redis: RedisOptions{
			Addr:      "localhost:6379",
			KeyPrefix: "storefront:",
		},
	}
}

// FromAppConfig converts the cache section of the application configuration.
//
// FromAppConfig 转换应用配置中的缓存部分。
func FromAppConfig(name string, c configs.CacheConfig) *Config {
	return &Config{
		Name:            name,
		Backend:         c.Backend,
		Codec:           c.Codec,
		MaxEntries:      c.MaxEntries,
		DefaultTTL:      c.DefaultTTL,
		CleanupInterval: c.CleanupInterval,
		Redis: RedisOptions{
			Addr:      c.Redis.Addr,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			KeyPrefix: c.Redis.KeyPrefix,
		},
	}
}

// Validate checks if the configuration is valid.
//
// Validate 检查配置是否有效。
//
// Returns:
//   - error: An error if the configuration is invalid, nil otherwise
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("cache name cannot be empty")
	}

	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis backend requires an address")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s", c.Backend)
	}

	if _, err := codec.Get(c.Codec); err != nil {
		return err
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("max entries cannot be negative")
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("default TTL cannot be negative")
	}
	if c.CleanupInterval != 0 && c.CleanupInterval < 10*time.Millisecond {
		return fmt.Errorf("cleanup interval must be at least 10ms")
	}
	return nil
}
