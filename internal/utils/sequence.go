// Package utils 提供店面数据层内部使用的通用工具
package utils

import (
	"sync/atomic"
)

// Sequence 是单调递增的请求序号生成器
// 每个集合持有一个，用于判断一次结算是否来自最新发出的请求
type Sequence struct {
	value atomic.Uint64
}

// Next 原子地分配下一个序号，第一个序号为1
func (s *Sequence) Next() uint64 {
	return s.value.Add(1)
}

// Current 返回最近分配的序号，尚未分配时为0
func (s *Sequence) Current() uint64 {
	return s.value.Load()
}

// IsLatest 判断seq是否为最近分配的序号
func (s *Sequence) IsLatest(seq uint64) bool {
	return seq == s.value.Load()
}
