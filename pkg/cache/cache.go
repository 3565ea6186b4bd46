// Package cache provides the response cache used by the catalog API server.
// Values are stored as bytes so the in-memory and redis backends are
// interchangeable; GetValue and SetValue layer a codec on top.
//
// Package cache 提供目录API服务器使用的响应缓存。
// 值以字节形式存储，因此内存后端和redis后端可以互换；
// GetValue 和 SetValue 在其上叠加编解码器。
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache: closed")

// ICache defines the interface for the cache.
// All methods are thread-safe and can be called concurrently.
//
// ICache 定义缓存的接口。
// 所有方法都是线程安全的，可以并发调用。
type ICache interface {
	// Get retrieves a value from the cache.
	// If the key is not found or has expired, (nil, false, nil) is returned.
	//
	// Get 从缓存中检索值。
	// 如果未找到键或键已过期，则返回 (nil, false, nil)。
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - key: The key to retrieve
	//
	// Returns:
	//   - []byte: The cached bytes if found
	//   - bool: True if the key was found and is valid
	//   - error: Error if the backend failed
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key.
	// If ttl is 0, the default TTL is used. If ttl is negative, the entry does not expire.
	//
	// Set 将值存储在key下。
	// 如果ttl为0，则使用默认TTL。如果ttl为负数，则条目不会过期。
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - key: The key under which to store the value
	//   - value: The bytes to store
	//   - ttl: Time-to-live for the entry
	//
	// Returns:
	//   - error: Error if the set operation failed
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache and reports whether it existed.
	//
	// Delete 从缓存中删除值，并报告该值是否存在。
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes all values owned by this cache.
	//
	// Clear 删除此缓存拥有的所有值。
	Clear(ctx context.Context) error

	// Stats returns statistics about the cache.
	//
	// Stats 返回有关缓存的统计信息。
	Stats(ctx context.Context) (*Stats, error)

	// Close releases resources used by the cache.
	//
	// Close 释放缓存使用的资源。
	Close() error
}

// Stats represents cache statistics.
//
// Stats 表示缓存统计信息。
type Stats struct {
	// EntryCount is the current number of entries in the cache
	// EntryCount 是缓存中当前的条目数量
	EntryCount int64 `json:"entry_count"`

	// Hits is the number of successful cache retrievals
	// Hits 是成功的缓存检索次数
	Hits int64 `json:"hits"`

	// Misses is the number of cache retrievals where the key was not found
	// Misses 是未找到键的缓存检索次数
	Misses int64 `json:"misses"`

	// Evictions is the number of entries removed due to capacity constraints
	// Evictions 是由于容量限制而删除的条目数
	Evictions int64 `json:"evictions"`

	// Size is the total size of the stored values in bytes
	// Size 是已存储值的总字节数
	Size int64 `json:"size"`
}

// GetValue reads key and decodes it into out with the cache's codec.
//
// GetValue 读取key并使用缓存的编解码器将其解码到out中。
func GetValue(ctx context.Context, c *Cache, key string, out any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := c.codec.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// SetValue encodes value with the cache's codec and stores it under key.
//
// SetValue 使用缓存的编解码器编码value并将其存储在key下。
func SetValue(ctx context.Context, c *Cache, key string, value any, ttl time.Duration) error {
	data, err := c.codec.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}
