package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/Humphrey-He/storefront/internal/ttl"
)

// memoryCache keeps entries in a map and their insertion order in a list so
// the oldest entry can be evicted when MaxEntries is reached.
//
// memoryCache 将条目保存在map中，并在链表中记录写入顺序，
// 以便在达到 MaxEntries 时淘汰最早的条目。
type memoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List
	maxEntries int
	defaultTTL time.Duration
	stats      Stats
	now        func() time.Time

	cleaner   *ttl.Cleaner
	closeOnce sync.Once
	closed    bool
}

type memoryEntry struct {
	key        string
	value      []byte
	expiration time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiration.IsZero() && now.After(e.expiration)
}

// NewMemory creates an in-memory backend. A positive cleanup interval starts
// a ttl.Cleaner that drops expired entries until Close is called.
//
// NewMemory 创建一个内存后端。正的清理间隔会启动一个 ttl.Cleaner，
// 在调用Close之前持续删除过期条目。
func NewMemory(maxEntries int, defaultTTL, cleanupInterval time.Duration) ICache {
	c := &memoryCache{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	if cleanupInterval > 0 {
		c.cleaner = ttl.NewCleaner(c, cleanupInterval)
	}
	return c
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false, ErrClosed
	}
	el, found := c.items[key]
	if !found {
		c.stats.Misses++
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if entry.expired(c.now()) {
		c.removeElement(el)
		c.stats.Misses++
		return nil, false, nil
	}
	c.stats.Hits++
	return entry.value, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	// 使用提供的TTL，如果为0则使用默认值，负数表示永不过期
	var expiration time.Time
	if ttl > 0 {
		expiration = c.now().Add(ttl)
	} else if ttl == 0 && c.defaultTTL > 0 {
		expiration = c.now().Add(c.defaultTTL)
	}

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	entry := &memoryEntry{key: key, value: append([]byte(nil), value...), expiration: expiration}
	c.items[key] = c.order.PushBack(entry)
	c.stats.Size += int64(len(entry.value))

	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		c.removeElement(c.order.Front())
		c.stats.Evictions++
	}
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrClosed
	}
	el, exists := c.items[key]
	if !exists {
		return false, nil
	}
	c.removeElement(el)
	return true, nil
}

func (c *memoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.stats.Size = 0
	return nil
}

func (c *memoryCache) Stats(_ context.Context) (*Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.EntryCount = int64(len(c.items))
	return &s, nil
}

func (c *memoryCache) Close() error {
	c.closeOnce.Do(func() {
		if c.cleaner != nil {
			c.cleaner.Close()
		}
		c.mu.Lock()
		c.closed = true
		c.items = make(map[string]*list.Element)
		c.order.Init()
		c.stats.Size = 0
		c.mu.Unlock()
	})
	return nil
}

// removeElement 需要在持有锁时调用
func (c *memoryCache) removeElement(el *list.Element) {
	entry := c.order.Remove(el).(*memoryEntry)
	delete(c.items, entry.key)
	c.stats.Size -= int64(len(entry.value))
}

// DeleteExpired removes every expired entry and returns how many it removed.
func (c *memoryCache) DeleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*memoryEntry).expired(now) {
			c.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}
