package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Humphrey-He/storefront/pkg/codec"
)

// dialTimeout bounds the initial PING of the redis backend.
const dialTimeout = 5 * time.Second

// Cache is a backend paired with the codec GetValue and SetValue use.
//
// Cache 是后端与 GetValue 和 SetValue 所用编解码器的组合。
type Cache struct {
	ICache
	name  string
	codec codec.Codec
}

// Name returns the configured cache name.
func (c *Cache) Name() string { return c.name }

// Codec returns the codec used for typed access.
func (c *Cache) Codec() codec.Codec { return c.codec }

// Wrap pairs an existing backend with a codec.
//
// Wrap 将已有后端与编解码器组合。
func Wrap(name string, backend ICache, cd codec.Codec) *Cache {
	if cd == nil {
		cd = codec.Default()
	}
	return &Cache{ICache: backend, name: name, codec: cd}
}

// New creates a new cache instance with the provided configuration.
// If config is nil, default configuration will be used.
//
// New 创建一个具有提供的配置的新缓存实例。
// 如果config为nil，将使用默认配置。
//
// Parameters:
//   - config: The configuration to use for the cache
//
// Returns:
//   - *Cache: The created cache instance
//   - error: An error if the configuration is invalid or redis is unreachable
func New(config *Config) (*Cache, error) {
	if config == nil {
		config = NewDefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache configuration: %w", err)
	}

	cd, err := codec.Get(config.Codec)
	if err != nil {
		return nil, err
	}

	var backend ICache
	switch config.Backend {
	case BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		backend, err = DialRedis(ctx, config.Redis, config.DefaultTTL)
		if err != nil {
			return nil, fmt.Errorf("connect redis cache %s: %w", config.Redis.Addr, err)
		}
	default:
		backend = NewMemory(config.MaxEntries, config.DefaultTTL, config.CleanupInterval)
	}
	return Wrap(config.Name, backend, cd), nil
}

// NewWithOptions creates a new cache instance with the provided options
// applied to the default configuration.
//
// NewWithOptions 创建一个新缓存实例，将提供的选项应用于默认配置。
//
// Parameters:
//   - name: The name of the cache instance
//   - options: A list of option functions to configure the cache
//
// Returns:
//   - *Cache: The created cache instance
//   - error: An error if the cache creation fails
func NewWithOptions(name string, options ...Option) (*Cache, error) {
	config := NewDefaultConfig()
	config.Name = name
	for _, option := range options {
		option(config)
	}
	return New(config)
}
