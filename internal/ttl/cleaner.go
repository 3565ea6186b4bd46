// Package ttl 提供过期项的周期清理
package ttl

import (
	"sync"
	"sync/atomic"
	"time"
)

// Sweeper 由持有过期项的存储实现，DeleteExpired 返回删除的项数
type Sweeper interface {
	DeleteExpired() int
}

// Cleaner 按固定间隔调用 Sweeper 清理过期项，直到 Close 被调用
type Cleaner struct {
	sweeper       Sweeper       // 被清理的存储
	cleanInterval time.Duration // 清理间隔
	closeChan     chan struct{} // 关闭信号
	closeOnce     sync.Once     // 确保只关闭一次
	wg            sync.WaitGroup
	cleanCount    uint64 // 清理次数
	expiredCount  uint64 // 删除的过期项数量
	cleanDuration int64  // 累计清理耗时（纳秒）
}

// Stats 清理统计
type Stats struct {
	CleanCount    uint64
	ExpiredCount  uint64
	CleanDuration time.Duration
}

// NewCleaner 创建并启动清理器，interval 必须为正
func NewCleaner(sweeper Sweeper, interval time.Duration) *Cleaner {
	c := &Cleaner{
		sweeper:       sweeper,
		cleanInterval: interval,
		closeChan:     make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanerLoop()
	return c
}

// cleanerLoop 清理循环，定期清理过期项
func (c *Cleaner) cleanerLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cleanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanNow()
		case <-c.closeChan:
			return
		}
	}
}

// CleanNow 立即执行一次清理
func (c *Cleaner) CleanNow() int {
	start := time.Now()
	removed := c.sweeper.DeleteExpired()

	atomic.AddUint64(&c.cleanCount, 1)
	atomic.AddUint64(&c.expiredCount, uint64(removed))
	atomic.AddInt64(&c.cleanDuration, int64(time.Since(start)))
	return removed
}

// Stats 返回清理统计
func (c *Cleaner) Stats() Stats {
	return Stats{
		CleanCount:    atomic.LoadUint64(&c.cleanCount),
		ExpiredCount:  atomic.LoadUint64(&c.expiredCount),
		CleanDuration: time.Duration(atomic.LoadInt64(&c.cleanDuration)),
	}
}

// Close 停止清理循环并等待其退出，可重复调用
func (c *Cleaner) Close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
	})
	c.wg.Wait()
}
