// Package metrics 提供请求生命周期指标采集、统计和输出功能
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Histogram 延迟直方图，用于统计延迟分布
// 使用原子操作确保高并发安全
type Histogram struct {
	// 桶边界，单位为纳秒
	bucketBounds []int64
	// 桶计数
	bucketCounts []uint64
	// 总计数
	count uint64
	// 最小值
	min int64
	// 最大值
	max int64
	// 总和
	sum int64
	// 互斥锁，用于保护Reset与快照
	mu sync.RWMutex
}

// HistogramSnapshot 直方图快照
type HistogramSnapshot struct {
	BucketBounds []int64  `json:"bucket_bounds"`
	BucketCounts []uint64 `json:"bucket_counts"`
	Count        uint64   `json:"count"`
	Min          int64    `json:"min"`
	Max          int64    `json:"max"`
	Sum          int64    `json:"sum"`
	Mean         float64  `json:"mean"`
	P50          int64    `json:"p50"`
	P90          int64    `json:"p90"`
	P99          int64    `json:"p99"`
}

// NewHistogram 创建一个新的直方图
// bucketCount 为桶数量，将自动生成从1毫秒到30秒的指数分布桶边界
func NewHistogram(bucketCount int) *Histogram {
	if bucketCount <= 0 {
		bucketCount = 10
	}

	lowest := float64(time.Millisecond)
	highest := float64(30 * time.Second)

	bounds := make([]int64, bucketCount+1)
	for i := 0; i <= bucketCount; i++ {
		power := float64(i) / float64(bucketCount)
		bounds[i] = int64(lowest * math.Pow(highest/lowest, power))
	}
	return newHistogram(bounds)
}

// NewHistogramMillis 使用以毫秒为单位的桶边界创建直方图
// 边界必须递增，为空时退化为NewHistogram(10)
func NewHistogramMillis(boundsMs []float64) *Histogram {
	if len(boundsMs) == 0 {
		return NewHistogram(10)
	}
	bounds := make([]int64, len(boundsMs))
	for i, ms := range boundsMs {
		bounds[i] = int64(ms * float64(time.Millisecond))
	}
	return newHistogram(bounds)
}

func newHistogram(bounds []int64) *Histogram {
	return &Histogram{
		bucketBounds: bounds,
		bucketCounts: make([]uint64, len(bounds)),
		min:          math.MaxInt64,
	}
}

// RecordLatency 记录一个延迟值
func (h *Histogram) RecordLatency(latency time.Duration) {
	latencyNs := int64(latency)
	h.updateStats(latencyNs)

	bucketIndex := h.findBucket(latencyNs)
	atomic.AddUint64(&h.bucketCounts[bucketIndex], 1)
	atomic.AddUint64(&h.count, 1)
}

// updateStats 更新最小值、最大值和总和
func (h *Histogram) updateStats(latencyNs int64) {
	for {
		lowest := atomic.LoadInt64(&h.min)
		if latencyNs >= lowest || atomic.CompareAndSwapInt64(&h.min, lowest, latencyNs) {
			break
		}
	}

	for {
		highest := atomic.LoadInt64(&h.max)
		if latencyNs <= highest || atomic.CompareAndSwapInt64(&h.max, highest, latencyNs) {
			break
		}
	}

	atomic.AddInt64(&h.sum, latencyNs)
}

// findBucket 找到延迟值对应的桶索引，超过最大边界的值落入最后一个桶
func (h *Histogram) findBucket(latencyNs int64) int {
	i, j := 0, len(h.bucketBounds)-1
	for i < j {
		mid := (i + j) / 2
		if latencyNs > h.bucketBounds[mid] {
			i = mid + 1
		} else {
			j = mid
		}
	}
	return i
}

// Reset 重置直方图
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.bucketCounts {
		atomic.StoreUint64(&h.bucketCounts[i], 0)
	}
	atomic.StoreUint64(&h.count, 0)
	atomic.StoreInt64(&h.min, math.MaxInt64)
	atomic.StoreInt64(&h.max, 0)
	atomic.StoreInt64(&h.sum, 0)
}

// GetSnapshot 获取直方图快照
func (h *Histogram) GetSnapshot() *HistogramSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	bucketCounts := make([]uint64, len(h.bucketCounts))
	count := atomic.LoadUint64(&h.count)
	if count == 0 {
		return &HistogramSnapshot{
			BucketBounds: h.bucketBounds,
			BucketCounts: bucketCounts,
		}
	}

	for i := range h.bucketCounts {
		bucketCounts[i] = atomic.LoadUint64(&h.bucketCounts[i])
	}
	sum := atomic.LoadInt64(&h.sum)

	return &HistogramSnapshot{
		BucketBounds: h.bucketBounds,
		BucketCounts: bucketCounts,
		Count:        count,
		Min:          atomic.LoadInt64(&h.min),
		Max:          atomic.LoadInt64(&h.max),
		Sum:          sum,
		Mean:         float64(sum) / float64(count),
		P50:          h.calculatePercentile(bucketCounts, 0.5),
		P90:          h.calculatePercentile(bucketCounts, 0.9),
		P99:          h.calculatePercentile(bucketCounts, 0.99),
	}
}

// calculatePercentile 计算百分位数，桶内使用线性插值
func (h *Histogram) calculatePercentile(bucketCounts []uint64, percentile float64) int64 {
	if percentile < 0 || percentile > 1 {
		return 0
	}

	total := uint64(0)
	for _, c := range bucketCounts {
		total += c
	}
	if total == 0 {
		return 0
	}

	targetCount := uint64(float64(total) * percentile)
	cumulativeCount := uint64(0)

	for i, c := range bucketCounts {
		cumulativeCount += c
		if cumulativeCount >= targetCount {
			if i == len(bucketCounts)-1 || c == 0 {
				return h.bucketBounds[i]
			}

			bucketStart := h.bucketBounds[i]
			bucketEnd := h.bucketBounds[i+1]
			prevCumulativeCount := cumulativeCount - c
			bucketPosition := float64(targetCount-prevCumulativeCount) / float64(c)

			return bucketStart + int64(float64(bucketEnd-bucketStart)*bucketPosition)
		}
	}

	return h.bucketBounds[len(h.bucketBounds)-1]
}
