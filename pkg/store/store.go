// Package store implements the remote collection store: the single source of
// truth for the product listing and the category list, together with the
// fetch lifecycle of each.
//
// Every transition of a collection goes through one reducer under the store
// mutex. Fetches run on their own goroutines and re-enter the reducer when
// they settle, so callers never block on issuing a request.
//
// Package store 实现远程集合存储：商品列表和分类列表的唯一数据源，
// 以及各自的获取生命周期。
//
// 集合的每次状态转换都在存储互斥锁下通过同一个归约函数完成。
// 获取在各自的goroutine中运行，结算时重新进入归约函数，
// 因此调用方发起请求时永远不会阻塞。
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Humphrey-He/storefront/internal/metrics"
	"github.com/Humphrey-He/storefront/internal/utils"
	"github.com/Humphrey-He/storefront/pkg/catalog"
	sferrors "github.com/Humphrey-He/storefront/pkg/errors"
	"github.com/Humphrey-He/storefront/pkg/loader"
)

// ProductLoader fetches one page of the product listing.
type ProductLoader = loader.Loader[catalog.ProductQuery, catalog.ProductPage]

// CategoryLoader fetches the category list.
type CategoryLoader = loader.Loader[loader.None, []catalog.Category]

type subscriber struct {
	id uint64
	fn func(Event)
}

// Store holds the product and category collections. Create one per session
// with New and release it with Close.
//
// Store 持有商品和分类集合。每个会话使用 New 创建一个，并用 Close 释放。
type Store struct {
	products   ProductLoader
	categories CategoryLoader
	opts       options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	closed        bool
	productState  ProductCollectionState
	categoryState CategoryCollectionState
	priceRange    catalog.PriceRange
	productSeq    utils.Sequence
	categorySeq   utils.Sequence
	subscribers   []subscriber
	nextSubID     uint64
}

// New creates a store fetching through the given loaders.
//
// New 创建一个通过给定加载器获取数据的存储。
//
// Parameters:
//   - products: Loader of product listing pages
//   - categories: Loader of the category list
//   - opts: Optional settings such as WithStalePolicy or WithLogger
//
// Returns:
//   - *Store: A store whose collections are both idle
func New(products ProductLoader, categories CategoryLoader, opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		products:   products,
		categories: categories,
		opts:       o,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RequestProducts transitions the product collection to loading and
// dispatches one asynchronous fetch for query. An unset page defaults to 1 and
// the limit is always the configured page size. The loading status is
// observable as soon as RequestProducts returns.
//
// RequestProducts 将商品集合转换为加载状态，并为 query 发起一次异步获取。
// 未设置的页码默认为第1页，limit 始终为配置的分页大小。RequestProducts 返回时即可观察到加载状态。
//
// Parameters:
//   - query: The listing parameters; the store keeps its own copy
//
// Returns:
//   - *Request: Handle of the issued fetch
func (s *Store) RequestProducts(query catalog.ProductQuery) *Request {
	// The page size belongs to the store; a caller supplied limit is ignored.
	query.Limit = s.opts.pageSize
	invalid := query.Validate()
	q := query.Normalize(s.opts.pageSize)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		req := newRequest(s.opts.newID(), 0, CollectionProducts)
		req.Query = q
		req.settle(sferrors.NewFetchError(sferrors.ErrProductFetchFailed, 0, "", sferrors.ErrStoreClosed), false)
		return req
	}
	req := newRequest(s.opts.newID(), s.productSeq.Next(), CollectionProducts)
	req.Query = q
	ev, _ := s.reduceProducts(productAction{kind: actionPending, req: req})
	subs := s.subscribersLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.opts.metrics.RecordRequest(metrics.Products)
	s.opts.logger.Debug("product fetch issued",
		zap.String("request_id", req.ID),
		zap.Uint64("seq", req.Seq),
		zap.String("query", q.Encode()))
	publish(subs, ev)

	if invalid != nil {
		err := sferrors.NewFetchError(sferrors.ErrProductFetchFailed, 0, invalid.Error(),
			fmt.Errorf("%w: %v", sferrors.ErrInvalidQuery, invalid))
		s.settleProducts(req, s.opts.now(), catalog.ProductPage{}, err)
		s.wg.Done()
		return req
	}

	go s.fetchProducts(req)
	return req
}

func (s *Store) fetchProducts(req *Request) {
	defer s.wg.Done()

	start := s.opts.now()
	page, err := loadSafely(loader.WithRequestID(s.ctx, req.ID), s.products, req.Query)
	if err != nil {
		err = normalize(err, sferrors.ErrProductFetchFailed)
	}
	s.settleProducts(req, start, page, err)
}

func (s *Store) settleProducts(req *Request, start time.Time, page catalog.ProductPage, err error) {
	latency := s.opts.now().Sub(start)
	kind := actionSucceeded
	if err != nil {
		kind = actionFailed
	}

	s.mu.Lock()
	ev, applied := s.reduceProducts(productAction{kind: kind, req: req, page: page, err: err})
	subs := s.subscribersLocked()
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("request_id", req.ID),
		zap.Uint64("seq", req.Seq),
		zap.Duration("latency", latency),
	}
	switch {
	case !applied:
		s.opts.metrics.RecordDiscarded(metrics.Products, latency)
		s.opts.logger.Debug("stale product settlement discarded", fields...)
		req.settle(err, true)
		return
	case err != nil:
		s.opts.metrics.RecordFailure(metrics.Products, latency)
		s.opts.logger.Warn("product fetch failed", append(fields, zap.Error(err))...)
	default:
		s.opts.metrics.RecordSuccess(metrics.Products, latency)
		s.opts.logger.Debug("product fetch succeeded",
			append(fields, zap.Int("items", len(page.Products)), zap.Int("total", page.TotalProducts))...)
	}

	publish(subs, ev)
	req.settle(err, false)
}

// RequestCategories transitions the category collection to loading and
// dispatches one asynchronous fetch. Repeated calls re-fetch and overwrite.
//
// RequestCategories 将分类集合转换为加载状态并发起一次异步获取。重复调用会重新获取并覆盖。
func (s *Store) RequestCategories() *Request {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		req := newRequest(s.opts.newID(), 0, CollectionCategories)
		req.settle(sferrors.NewFetchError(sferrors.ErrCategoryFetchFailed, 0, "", sferrors.ErrStoreClosed), false)
		return req
	}
	req := newRequest(s.opts.newID(), s.categorySeq.Next(), CollectionCategories)
	ev, _ := s.reduceCategories(categoryAction{kind: actionPending, req: req})
	subs := s.subscribersLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.opts.metrics.RecordRequest(metrics.Categories)
	s.opts.logger.Debug("category fetch issued",
		zap.String("request_id", req.ID),
		zap.Uint64("seq", req.Seq))
	publish(subs, ev)

	go s.fetchCategories(req)
	return req
}

func (s *Store) fetchCategories(req *Request) {
	defer s.wg.Done()

	start := s.opts.now()
	items, err := loadSafely(loader.WithRequestID(s.ctx, req.ID), s.categories, loader.None{})
	if err != nil {
		err = normalize(err, sferrors.ErrCategoryFetchFailed)
	}
	latency := s.opts.now().Sub(start)

	kind := actionSucceeded
	if err != nil {
		kind = actionFailed
	}

	s.mu.Lock()
	ev, applied := s.reduceCategories(categoryAction{kind: kind, req: req, items: items, err: err})
	subs := s.subscribersLocked()
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("request_id", req.ID),
		zap.Uint64("seq", req.Seq),
		zap.Duration("latency", latency),
	}
	switch {
	case !applied:
		s.opts.metrics.RecordDiscarded(metrics.Categories, latency)
		s.opts.logger.Debug("stale category settlement discarded", fields...)
		req.settle(err, true)
		return
	case err != nil:
		s.opts.metrics.RecordFailure(metrics.Categories, latency)
		s.opts.logger.Warn("category fetch failed", append(fields, zap.Error(err))...)
	default:
		s.opts.metrics.RecordSuccess(metrics.Categories, latency)
		s.opts.logger.Debug("category fetch succeeded", append(fields, zap.Int("items", len(items)))...)
	}

	publish(subs, ev)
	req.settle(err, false)
}

// loadSafely calls l and turns a panic into an error so a misbehaving loader
// cannot leave a collection loading forever.
func loadSafely[Q, T any](ctx context.Context, l loader.Loader[Q, T], q Q) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loader panic: %v", r)
		}
	}()
	return l.Load(ctx, q)
}

// normalize makes sure err carries the failure kind of its collection.
func normalize(err error, kind error) error {
	if sferrors.IsProductFetchFailed(err) || sferrors.IsCategoryFetchFailed(err) {
		return err
	}
	return sferrors.NewFetchError(kind, 0, "", err)
}

// SetPriceRange records the last applied price bounds. It does not touch the
// product collection; pass PriceRange().Apply(query) to RequestProducts to use them.
//
// SetPriceRange 记录最后应用的价格区间。它不会影响商品集合；
// 需要时将 PriceRange().Apply(query) 传给 RequestProducts。
func (s *Store) SetPriceRange(minPrice, maxPrice decimal.Decimal) {
	s.mu.Lock()
	s.priceRange = catalog.NewPriceRange(minPrice, maxPrice)
	s.mu.Unlock()
}

// PriceRange returns exactly the bounds stored by SetPriceRange, or a zero
// range when none were recorded.
//
// PriceRange 精确返回 SetPriceRange 存储的区间，未记录时返回零值区间。
func (s *Store) PriceRange() catalog.PriceRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.priceRange
	if r.MinPrice != nil {
		v := *r.MinPrice
		r.MinPrice = &v
	}
	if r.MaxPrice != nil {
		v := *r.MaxPrice
		r.MaxPrice = &v
	}
	return r
}

// ProductState returns a snapshot of the product collection.
//
// ProductState 返回商品集合的快照。
func (s *Store) ProductState() ProductCollectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productState.clone()
}

// CategoryState returns a snapshot of the category collection.
//
// CategoryState 返回分类集合的快照。
func (s *Store) CategoryState() CategoryCollectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categoryState.clone()
}

// Products returns a deep copy of the current product items.
func (s *Store) Products() []catalog.Product {
	return s.ProductState().Items
}

// Product looks up a product of the current page by ID.
func (s *Store) Product(id string) (catalog.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.productState.Items {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return catalog.Product{}, false
}

// Categories returns a copy of the current category items.
func (s *Store) Categories() []catalog.Category {
	return s.CategoryState().Items
}

// TotalCount returns the total matches of the last applied successful query.
func (s *Store) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productState.TotalCount
}

// ProductStatus returns the status of the product collection.
func (s *Store) ProductStatus() RequestStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productState.Status
}

// CategoryStatus returns the status of the category collection.
func (s *Store) CategoryStatus() RequestStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categoryState.Status
}

// IsLoadingProducts reports whether the product collection is idle or loading.
func (s *Store) IsLoadingProducts() bool {
	return s.ProductStatus().IsLoading()
}

// IsLoadingCategories reports whether the category collection is idle or loading.
func (s *Store) IsLoadingCategories() bool {
	return s.CategoryStatus().IsLoading()
}

// PageSize returns the limit sent with every listing request.
func (s *Store) PageSize() int {
	return s.opts.pageSize
}

// Subscribe registers fn to be called after every applied transition. Calls
// happen outside the store lock, on the goroutine that applied the transition,
// so fn must be safe for concurrent use. Event order is only guaranteed per
// goroutine: when settlements race, the last event delivered need not be the
// last transition applied. Read ProductState or CategoryState for the current
// state. The returned function removes the subscription.
//
// Subscribe 注册 fn，在每次应用状态转换后调用。调用发生在存储锁之外，
// 位于应用该转换的goroutine上，因此 fn 必须可以并发调用。事件顺序只在单个
// goroutine内有保证：结算并发时，最后送达的事件不一定是最后应用的转换。
// 当前状态请读取 ProductState 或 CategoryState。返回的函数用于取消订阅。
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// subscribersLocked copies the subscriber list. Callers hold s.mu.
func (s *Store) subscribersLocked() []subscriber {
	if len(s.subscribers) == 0 {
		return nil
	}
	return append([]subscriber(nil), s.subscribers...)
}

func publish(subs []subscriber, ev Event) {
	for _, sub := range subs {
		sub.fn(ev)
	}
}

// Close cancels in-flight fetches, waits for them to settle and makes every
// later request settle immediately with ErrStoreClosed. It is safe to call
// more than once.
//
// Close 取消进行中的获取并等待其结算，之后的每个请求都会立即以 ErrStoreClosed 结算。
// 可以多次调用。
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.opts.logger.Debug("store closed")
	return nil
}
