// Package loader provides the fetch interface the storefront store consumes,
// supporting fallback and memoising strategies around a remote source.
//
// Package loader 提供店面存储所使用的获取接口，
// 并围绕远程数据源支持后备和记忆化策略。
package loader

import (
	"context"
	"sync"
	"time"
)

// Loader is the interface that wraps the basic Load method.
//
// Load retrieves the result for the given query from a data source.
// Implementations must be safe for concurrent use: the store calls Load from
// one goroutine per request and requests may overlap.
//
// Loader 是包装基本Load方法的接口。
//
// Load 从数据源检索给定查询的结果。
// 实现必须可以并发使用：存储为每个请求在独立的goroutine中调用Load，请求可能重叠。
type Loader[Q, T any] interface {
	Load(ctx context.Context, query Q) (T, error)
}

// LoaderFunc is a function type that implements the Loader interface.
//
// LoaderFunc 是实现Loader接口的函数类型。
type LoaderFunc[Q, T any] func(ctx context.Context, query Q) (T, error)

// Load calls the function itself.
//
// Load 调用函数本身。
func (f LoaderFunc[Q, T]) Load(ctx context.Context, query Q) (T, error) {
	return f(ctx, query)
}

// None is the query type of loaders that take no parameters, such as the
// category fetch.
//
// None 是不带参数的加载器（例如分类获取）的查询类型。
type None struct{}

// FallbackLoader provides a fallback mechanism when the primary loader fails.
//
// FallbackLoader 提供当主加载器失败时的后备机制。
type FallbackLoader[Q, T any] struct {
	Primary   Loader[Q, T]
	Secondary Loader[Q, T]
}

// Load attempts to load data using the primary loader.
// If the primary loader fails, it falls back to the secondary loader.
//
// Load 尝试使用主加载器加载数据。
// 如果主加载器失败，它会回退到次要加载器。
func (f *FallbackLoader[Q, T]) Load(ctx context.Context, query Q) (T, error) {
	value, err := f.Primary.Load(ctx, query)
	if err != nil && f.Secondary != nil {
		return f.Secondary.Load(ctx, query)
	}
	return value, err
}

// NewFallbackLoader creates a new FallbackLoader with the given primary and secondary loaders.
//
// NewFallbackLoader 使用给定的主加载器和次要加载器创建一个新的FallbackLoader。
func NewFallbackLoader[Q, T any](primary, secondary Loader[Q, T]) *FallbackLoader[Q, T] {
	return &FallbackLoader[Q, T]{
		Primary:   primary,
		Secondary: secondary,
	}
}

// CachedLoader wraps a loader with a local cache to reduce load on the backend.
// Failures are never cached.
//
// CachedLoader 用本地缓存包装加载器，以减轻后端负载。失败结果不会被缓存。
type CachedLoader[Q, T any] struct {
	Backend Loader[Q, T]
	Key     func(Q) string
	TTL     time.Duration

	mu    sync.RWMutex
	cache map[string]cachedItem[T]
	now   func() time.Time
}

// cachedItem represents an item in the local cache with its expiration time.
//
// cachedItem 表示本地缓存中的项目及其过期时间。
type cachedItem[T any] struct {
	Value      T
	Expiration time.Time
}

// Load attempts to retrieve the value from the local cache first.
// If the value is not in the cache or has expired, it loads from the backend.
//
// Load 首先尝试从本地缓存检索值。
// 如果值不在缓存中或已过期，它会从后端加载。
func (c *CachedLoader[Q, T]) Load(ctx context.Context, query Q) (T, error) {
	key := c.Key(query)

	c.mu.RLock()
	if item, ok := c.cache[key]; ok && c.now().Before(item.Expiration) {
		c.mu.RUnlock()
		return item.Value, nil
	}
	c.mu.RUnlock()

	value, err := c.Backend.Load(ctx, query)
	if err != nil {
		return value, err
	}

	c.mu.Lock()
	c.cache[key] = cachedItem[T]{
		Value:      value,
		Expiration: c.now().Add(c.TTL),
	}
	c.mu.Unlock()

	return value, nil
}

// Invalidate drops every cached entry.
//
// Invalidate 丢弃所有缓存条目。
func (c *CachedLoader[Q, T]) Invalidate() {
	c.mu.Lock()
	c.cache = make(map[string]cachedItem[T])
	c.mu.Unlock()
}

// NewCachedLoader creates a new CachedLoader with the given backend loader,
// key function and TTL.
//
// NewCachedLoader 使用给定的后端加载器、键函数和TTL创建一个新的CachedLoader。
func NewCachedLoader[Q, T any](backend Loader[Q, T], key func(Q) string, ttl time.Duration) *CachedLoader[Q, T] {
	return &CachedLoader[Q, T]{
		Backend: backend,
		Key:     key,
		TTL:     ttl,
		cache:   make(map[string]cachedItem[T]),
		now:     time.Now,
	}
}
