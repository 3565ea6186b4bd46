// Package metrics provides fetch lifecycle metrics collection, statistics, and reporting.
// Package metrics 提供请求生命周期指标采集、统计和输出功能。
//
// Every collection (products, categories, or any route served by the catalog
// API) owns a set of atomic counters: issued requests, successful and failed
// settlements, settlements discarded as stale and the number of requests in
// flight. A shared latency histogram and cache hit/miss counters complete the
// picture at the Detailed level.
//
// 每个集合（商品、分类或目录API提供的任意路由）拥有一组原子计数器：已发起的请求、
// 成功和失败的结算、因过期而丢弃的结算以及进行中的请求数。在Detailed级别下，
// 共享的延迟直方图和缓存命中/未命中计数器补充了完整的视图。
package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Level defines the metrics collection level.
// Level 定义指标采集级别。
type Level int32

const (
	// Disabled means metrics collection is turned off.
	// Disabled 表示禁用指标采集。
	Disabled Level = iota

	// Basic enables collection of request counters and cache hit ratio.
	// Basic 启用请求计数器和缓存命中率采集。
	Basic

	// Detailed additionally records the latency distribution.
	// Detailed 额外记录延迟分布。
	Detailed
)

// Collection names used by the store.
// 存储使用的集合名称。
const (
	Products   = "products"
	Categories = "categories"
)

// ParseLevel maps a configuration string to a Level. Unknown values map to Basic.
//
// ParseLevel 将配置字符串映射为Level，未知值映射为Basic。
func ParseLevel(s string) Level {
	switch s {
	case "disabled", "off", "none":
		return Disabled
	case "detailed":
		return Detailed
	default:
		return Basic
	}
}

// String returns the configuration name of the level.
func (l Level) String() string {
	switch l {
	case Disabled:
		return "disabled"
	case Detailed:
		return "detailed"
	default:
		return "basic"
	}
}

// collectionCounters holds the counters of one collection.
// collectionCounters 保存单个集合的计数器。
type collectionCounters struct {
	requests  uint64 // Issued requests / 发起的请求数
	successes uint64 // Successful settlements / 成功结算数
	failures  uint64 // Failed settlements / 失败结算数
	discarded uint64 // Stale settlements dropped / 被丢弃的过期结算数
	inFlight  int64  // Requests not yet settled / 尚未结算的请求数
}

// Metrics is a fetch lifecycle metrics collector.
// It uses atomic operations to ensure thread safety in high-concurrency environments.
//
// Metrics 是请求生命周期指标收集器。
// 使用原子操作确保高并发环境下的线程安全。
type Metrics struct {
	// Collection level
	// 采集级别
	level atomic.Int32

	// Per collection counters, created on first use
	// 按集合划分的计数器，首次使用时创建
	collections map[string]*collectionCounters

	// Response cache metrics
	// 响应缓存相关指标
	cacheHits   uint64 // Hit count / 命中次数
	cacheMisses uint64 // Miss count / 未命中次数

	// Latency histogram
	// 延迟直方图
	latencyHistogram *Histogram

	// Last update timestamp
	// 最后更新时间
	lastUpdated int64

	// Mutex protecting the collections map and the histogram pointer
	// 互斥锁，用于保护集合映射和直方图指针
	mu sync.RWMutex
}

// Config defines metrics configuration options.
// Config 定义指标配置选项。
type Config struct {
	// Level determines the detail level of metrics collection
	// Level 指定指标采集的详细程度
	Level Level

	// EnableLatencyHistogram enables latency histogram collection
	// EnableLatencyHistogram 启用延迟直方图收集
	EnableLatencyHistogram bool

	// HistogramBuckets holds the bucket bounds in milliseconds
	// HistogramBuckets 以毫秒为单位的桶边界
	HistogramBuckets []float64
}

// New creates a new metrics collector.
//
// New 创建一个新的指标收集器。
//
// Parameters:
//   - config: Configuration options for the metrics collector, nil for Basic
//
// Returns:
//   - *Metrics: A new metrics collector instance
func New(config *Config) *Metrics {
	if config == nil {
		config = &Config{Level: Basic}
	}

	m := &Metrics{
		collections: make(map[string]*collectionCounters),
		lastUpdated: time.Now().UnixNano(),
	}
	m.level.Store(int32(config.Level))

	if config.EnableLatencyHistogram {
		m.latencyHistogram = NewHistogramMillis(config.HistogramBuckets)
	}

	return m
}

// counters returns the counters of a collection, creating them when missing.
func (m *Metrics) counters(collection string) *collectionCounters {
	m.mu.RLock()
	c, ok := m.collections[collection]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.collections[collection]; !ok {
		c = &collectionCounters{}
		m.collections[collection] = c
	}
	return c
}

func (m *Metrics) enabled() bool {
	return m != nil && m.GetLevel() != Disabled
}

// RecordRequest records an issued request of a collection.
//
// RecordRequest 记录集合发起的一次请求。
func (m *Metrics) RecordRequest(collection string) {
	if !m.enabled() {
		return
	}
	c := m.counters(collection)
	atomic.AddUint64(&c.requests, 1)
	atomic.AddInt64(&c.inFlight, 1)
	atomic.StoreInt64(&m.lastUpdated, time.Now().UnixNano())
}

// RecordSuccess records a successful settlement and its latency.
//
// RecordSuccess 记录一次成功结算及其延迟。
func (m *Metrics) RecordSuccess(collection string, latency time.Duration) {
	if !m.enabled() {
		return
	}
	c := m.counters(collection)
	atomic.AddUint64(&c.successes, 1)
	m.settle(c, latency)
}

// RecordFailure records a failed settlement and its latency.
//
// RecordFailure 记录一次失败结算及其延迟。
func (m *Metrics) RecordFailure(collection string, latency time.Duration) {
	if !m.enabled() {
		return
	}
	c := m.counters(collection)
	atomic.AddUint64(&c.failures, 1)
	m.settle(c, latency)
}

// RecordDiscarded records a settlement dropped because a newer request was issued.
//
// RecordDiscarded 记录因发起了更新的请求而被丢弃的结算。
func (m *Metrics) RecordDiscarded(collection string, latency time.Duration) {
	if !m.enabled() {
		return
	}
	c := m.counters(collection)
	atomic.AddUint64(&c.discarded, 1)
	m.settle(c, latency)
}

func (m *Metrics) settle(c *collectionCounters, latency time.Duration) {
	atomic.AddInt64(&c.inFlight, -1)
	atomic.StoreInt64(&m.lastUpdated, time.Now().UnixNano())

	if m.GetLevel() != Detailed {
		return
	}
	m.mu.RLock()
	h := m.latencyHistogram
	m.mu.RUnlock()
	if h != nil {
		h.RecordLatency(latency)
	}
}

// RecordCacheHit 记录响应缓存命中
func (m *Metrics) RecordCacheHit() {
	if !m.enabled() {
		return
	}
	atomic.AddUint64(&m.cacheHits, 1)
}

// RecordCacheMiss 记录响应缓存未命中
func (m *Metrics) RecordCacheMiss() {
	if !m.enabled() {
		return
	}
	atomic.AddUint64(&m.cacheMisses, 1)
}

// Reset 重置所有指标
func (m *Metrics) Reset() {
	m.mu.Lock()
	m.collections = make(map[string]*collectionCounters)
	h := m.latencyHistogram
	m.mu.Unlock()

	atomic.StoreUint64(&m.cacheHits, 0)
	atomic.StoreUint64(&m.cacheMisses, 0)
	atomic.StoreInt64(&m.lastUpdated, time.Now().UnixNano())

	if h != nil {
		h.Reset()
	}
}

// GetLevel 获取当前指标采集级别
func (m *Metrics) GetLevel() Level {
	return Level(m.level.Load())
}

// SetLevel 设置指标采集级别
func (m *Metrics) SetLevel(level Level) {
	m.level.Store(int32(level))
}

// EnableLatencyHistogram 启用延迟直方图
func (m *Metrics) EnableLatencyHistogram(boundsMs []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencyHistogram = NewHistogramMillis(boundsMs)
}

// DisableLatencyHistogram 禁用延迟直方图
func (m *Metrics) DisableLatencyHistogram() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencyHistogram = nil
}

// CollectionSnapshot 单个集合的指标快照
type CollectionSnapshot struct {
	Name      string `json:"name"`
	Requests  uint64 `json:"requests"`
	Successes uint64 `json:"successes"`
	Failures  uint64 `json:"failures"`
	Discarded uint64 `json:"discarded"`
	InFlight  int64  `json:"in_flight"`
}

// Snapshot 指标快照
type Snapshot struct {
	Timestamp   int64 `json:"timestamp"`
	LastUpdated int64 `json:"last_updated"`

	// 按名称排序的集合指标
	Collections []CollectionSnapshot `json:"collections"`

	// 响应缓存相关指标
	CacheHits   uint64  `json:"cache_hits"`
	CacheMisses uint64  `json:"cache_misses"`
	HitRatio    float64 `json:"hit_ratio"`

	// 延迟直方图数据
	LatencyHistogram *HistogramSnapshot `json:"latency_histogram,omitempty"`
}

// Collection returns the snapshot of one collection, or a zero value with the
// given name when nothing was recorded for it.
//
// Collection 返回单个集合的快照，若未记录任何数据则返回带该名称的零值。
func (s *Snapshot) Collection(name string) CollectionSnapshot {
	for _, c := range s.Collections {
		if c.Name == name {
			return c
		}
	}
	return CollectionSnapshot{Name: name}
}

// ToJSON 将快照序列化为JSON
func (s *Snapshot) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// GetSnapshot 获取指标快照，禁用时返回nil
func (m *Metrics) GetSnapshot() *Snapshot {
	if !m.enabled() {
		return nil
	}

	m.mu.RLock()
	collections := make([]CollectionSnapshot, 0, len(m.collections))
	for name, c := range m.collections {
		collections = append(collections, CollectionSnapshot{
			Name:      name,
			Requests:  atomic.LoadUint64(&c.requests),
			Successes: atomic.LoadUint64(&c.successes),
			Failures:  atomic.LoadUint64(&c.failures),
			Discarded: atomic.LoadUint64(&c.discarded),
			InFlight:  atomic.LoadInt64(&c.inFlight),
		})
	}
	h := m.latencyHistogram
	m.mu.RUnlock()

	sort.Slice(collections, func(i, j int) bool {
		return collections[i].Name < collections[j].Name
	})

	hits := atomic.LoadUint64(&m.cacheHits)
	misses := atomic.LoadUint64(&m.cacheMisses)
	hitRatio := float64(0)
	if hits+misses > 0 {
		hitRatio = float64(hits) / float64(hits+misses)
	}

	snapshot := &Snapshot{
		Timestamp:   time.Now().UnixNano(),
		LastUpdated: atomic.LoadInt64(&m.lastUpdated),
		Collections: collections,
		CacheHits:   hits,
		CacheMisses: misses,
		HitRatio:    hitRatio,
	}

	if m.GetLevel() == Detailed && h != nil {
		snapshot.LatencyHistogram = h.GetSnapshot()
	}

	return snapshot
}
