package catalogapi

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Humphrey-He/storefront/internal/metrics"
	"github.com/Humphrey-He/storefront/pkg/cache"
	"github.com/Humphrey-He/storefront/pkg/catalog"
)

const categoriesKey = "categories"

// Service answers catalog reads with a cache-aside strategy: the response
// cache is consulted first, and on a miss the storage result is cached for
// the next request. Cache errors are logged and never fail a request.
//
// Service 使用缓存旁路策略响应目录读取：首先查询响应缓存，
// 未命中时将存储结果缓存以供下次请求使用。缓存错误只记录日志，不会使请求失败。
type Service struct {
	storage *Storage
	cache   *cache.Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
	ttl     time.Duration
}

// NewService creates a service. A nil cache disables caching.
//
// NewService 创建服务。cache为nil时禁用缓存。
func NewService(storage *Storage, c *cache.Cache, m *metrics.Metrics, logger *zap.Logger, ttl time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{storage: storage, cache: c, metrics: m, logger: logger, ttl: ttl}
}

// ListProducts returns one page of the listing for q.
//
// ListProducts 返回q对应的一页商品列表。
func (s *Service) ListProducts(ctx context.Context, q catalog.ProductQuery) catalog.ProductPage {
	q = q.Normalize(catalog.DefaultPageSize)
	key := q.Key()

	var page catalog.ProductPage
	if s.lookup(ctx, key, &page) {
		return page
	}
	page = s.storage.ListProducts(ctx, q)
	s.store(ctx, key, page)
	return page
}

// Categories returns the category list.
//
// Categories 返回分类列表。
func (s *Service) Categories(ctx context.Context) []catalog.Category {
	var categories []catalog.Category
	if s.lookup(ctx, categoriesKey, &categories) {
		return categories
	}
	categories = s.storage.Categories(ctx)
	s.store(ctx, categoriesKey, categories)
	return categories
}

func (s *Service) lookup(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	found, err := cache.GetValue(ctx, s.cache, key, out)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if found {
		s.metrics.RecordCacheHit()
		s.logger.Debug("cache hit", zap.String("key", key))
		return true
	}
	s.metrics.RecordCacheMiss()
	s.logger.Debug("cache miss", zap.String("key", key))
	return false
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := cache.SetValue(ctx, s.cache, key, value, s.ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
