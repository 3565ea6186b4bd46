package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Humphrey-He/storefront/internal/metrics"
	"github.com/Humphrey-He/storefront/pkg/catalog"
)

// StalePolicy decides what happens to a settlement that arrives after a newer
// request of the same collection was issued.
//
// StalePolicy 决定在同一集合发起了更新的请求之后到达的结算如何处理。
type StalePolicy int

const (
	// LastSettledWins applies every settlement, so whichever response settles
	// last determines the final state, even for a superseded query.
	// LastSettledWins 应用每一次结算，最后结算的响应决定最终状态，即使其查询已被取代。
	LastSettledWins StalePolicy = iota

	// DiscardStale tags each request with a sequence number and drops
	// settlements older than the latest issued request.
	// DiscardStale 为每个请求标记序列号，丢弃早于最新发起请求的结算。
	DiscardStale
)

// String returns the configuration name of the policy.
func (p StalePolicy) String() string {
	if p == DiscardStale {
		return "discard-stale"
	}
	return "last-settled"
}

// ParseStalePolicy maps a configuration value onto a StalePolicy.
//
// ParseStalePolicy 将配置值映射为 StalePolicy。
func ParseStalePolicy(s string) (StalePolicy, error) {
	switch s {
	case "", "last-settled":
		return LastSettledWins, nil
	case "discard-stale":
		return DiscardStale, nil
	default:
		return LastSettledWins, fmt.Errorf("store: unknown stale policy %q", s)
	}
}

type options struct {
	pageSize    int
	stalePolicy StalePolicy
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	newID       func() string
}

func defaultOptions() options {
	return options{
		pageSize:    catalog.DefaultPageSize,
		stalePolicy: LastSettledWins,
		logger:      zap.NewNop(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Option configures a Store.
//
// Option 配置 Store。
type Option func(*options)

// WithPageSize sets the limit applied to queries that carry none.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithStalePolicy selects how overlapping settlements are applied.
func WithStalePolicy(p StalePolicy) Option {
	return func(o *options) {
		o.stalePolicy = p
	}
}

// WithLogger sets the logger used for transitions and failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records request lifecycle counters into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator replaces the request ID generator, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) {
		if gen != nil {
			o.newID = gen
		}
	}
}
