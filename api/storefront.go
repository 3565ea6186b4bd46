// Package api provides the main entry point of the storefront data layer.
// It re-exports the types callers need from the sub-packages and wires
// configuration, logging, the HTTP client and the store into a Storefront.
//
// Package api 提供店面数据层的主要入口。
// 它重新导出调用方需要的子包类型，并将配置、日志、HTTP客户端和存储组装为 Storefront。
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Humphrey-He/storefront/configs"
	"github.com/Humphrey-He/storefront/internal/logging"
	"github.com/Humphrey-He/storefront/internal/metrics"
	"github.com/Humphrey-He/storefront/pkg/catalog"
	"github.com/Humphrey-He/storefront/pkg/client"
	"github.com/Humphrey-He/storefront/pkg/loader"
	"github.com/Humphrey-He/storefront/pkg/store"
)

// Store is the remote collection store.
// It is re-exported from the store package.
type Store = store.Store

// Request is the handle of one issued fetch.
// It is re-exported from the store package.
type Request = store.Request

// RequestStatus is the lifecycle status of a collection.
// It is re-exported from the store package.
type RequestStatus = store.RequestStatus

// Product is a catalog record.
// It is re-exported from the catalog package.
type Product = catalog.Product

// Category is a category record.
// It is re-exported from the catalog package.
type Category = catalog.Category

// ProductQuery holds the parameters of a listing fetch.
// It is re-exported from the catalog package.
type ProductQuery = catalog.ProductQuery

// Re-export the request statuses.
const (
	StatusIdle      = store.StatusIdle
	StatusLoading   = store.StatusLoading
	StatusSucceeded = store.StatusSucceeded
	StatusFailed    = store.StatusFailed
)

// Option configures a Storefront.
//
// Option 配置 Storefront。
type Option func(*Storefront)

// WithLogger uses l instead of a logger built from the log section.
func WithLogger(l *zap.Logger) Option {
	return func(s *Storefront) { s.logger = l }
}

// WithHTTPClient sets the HTTP client used to reach the catalog API.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Storefront) { s.httpClient = hc }
}

// Storefront owns one store and the collaborators it fetches through.
//
// Storefront 拥有一个存储及其获取数据所依赖的协作者。
type Storefront struct {
	cfg        *configs.Config
	logger     *zap.Logger
	level      *zap.AtomicLevel
	httpClient *http.Client

	client     *client.Client
	fallback   *client.Client
	categories *loader.CachedLoader[loader.None, []catalog.Category]
	metrics    *metrics.Metrics
	store      *store.Store

	viper     *configs.ViperConfig
	closeOnce sync.Once
}

// New wires a Storefront from cfg.
//
// New 根据cfg组装 Storefront。
//
// Parameters:
//   - cfg: The application configuration; nil uses the defaults
//   - opts: Optional overrides
//
// Returns:
//   - *Storefront: A storefront whose collections are both idle
//   - error: An error if the configuration is invalid
func New(cfg *configs.Config, opts ...Option) (*Storefront, error) {
	if cfg == nil {
		cfg = configs.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sf := &Storefront{cfg: cfg}
	for _, opt := range opts {
		opt(sf)
	}

	if sf.logger == nil {
		logger, level, err := logging.New(cfg.Log)
		if err != nil {
			return nil, err
		}
		sf.logger = logger
		sf.level = &level
	}

	clientOpts := []client.Option{client.WithLogger(sf.logger.Named("client"))}
	if sf.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(sf.httpClient))
	}
	c, err := client.New(client.Config{
		BaseURL:   cfg.API.BaseURL,
		SecretKey: cfg.API.SecretKey,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
	}, clientOpts...)
	if err != nil {
		return nil, err
	}
	sf.client = c

	policy, err := store.ParseStalePolicy(cfg.Store.StalePolicy)
	if err != nil {
		return nil, err
	}

	var products store.ProductLoader = c.Products()
	var categories store.CategoryLoader = c.Categories()
	if cfg.API.FallbackBaseURL != "" {
		fb, err := client.New(client.Config{
			BaseURL:   cfg.API.FallbackBaseURL,
			SecretKey: cfg.API.SecretKey,
			Timeout:   cfg.API.Timeout,
			UserAgent: cfg.API.UserAgent,
		}, append(clientOpts, client.WithLogger(sf.logger.Named("fallback")))...)
		if err != nil {
			return nil, err
		}
		sf.fallback = fb
		products = loader.NewFallbackLoader(products, fb.Products())
		categories = loader.NewFallbackLoader(categories, fb.Categories())
	}
	if ttl := cfg.Store.CategoryCacheTTL; ttl > 0 {
		sf.categories = loader.NewCachedLoader(categories, func(loader.None) string { return "categories" }, ttl)
		categories = sf.categories
	}

	storeOpts := []store.Option{
		store.WithPageSize(cfg.Store.PageSize),
		store.WithStalePolicy(policy),
		store.WithLogger(sf.logger.Named("store")),
	}
	if cfg.Metrics.Enable {
		sf.metrics = metrics.New(&metrics.Config{
			Level:                  metrics.ParseLevel(cfg.Metrics.Level),
			EnableLatencyHistogram: metrics.ParseLevel(cfg.Metrics.Level) == metrics.Detailed,
			HistogramBuckets:       cfg.Metrics.HistogramBuckets,
		})
		storeOpts = append(storeOpts, store.WithMetrics(sf.metrics))
	}
	sf.store = store.New(products, categories, storeOpts...)
	return sf, nil
}

// Open loads configFile (after any .env file in the working directory),
// wires a Storefront from it and, when extensions.hot_reload is enabled,
// applies endpoint and log level changes without a restart. An empty
// configFile uses the defaults.
//
// Open 加载configFile（在此之前加载工作目录中的.env文件），据此组装 Storefront，
// 并在启用 extensions.hot_reload 时无需重启即可应用端点和日志级别的更改。
func Open(configFile string, opts ...Option) (*Storefront, error) {
	if err := configs.LoadDotEnv(); err != nil {
		return nil, err
	}
	if configFile == "" {
		return New(configs.DefaultConfig(), opts...)
	}
	vc, err := configs.LoadViperConfig(configFile)
	if err != nil {
		return nil, err
	}
	sf, err := New(vc.Get(), opts...)
	if err != nil {
		vc.Close()
		return nil, err
	}
	sf.viper = vc
	vc.SetLogger(sf.logger.Named("config"))
	vc.Subscribe(sf.apply)
	return sf, nil
}

// apply is the hot reload subscriber.
func (s *Storefront) apply(cfg *configs.Config) {
	if err := s.client.UpdateEndpoint(cfg.API.BaseURL, cfg.API.SecretKey); err != nil {
		s.logger.Warn("ignoring reloaded api settings", zap.Error(err))
	} else if s.categories != nil {
		s.categories.Invalidate()
	}
	if s.fallback != nil && cfg.API.FallbackBaseURL != "" {
		if err := s.fallback.UpdateEndpoint(cfg.API.FallbackBaseURL, cfg.API.SecretKey); err != nil {
			s.logger.Warn("ignoring reloaded fallback api settings", zap.Error(err))
		}
	}
	if s.level != nil {
		if lvl, err := logging.ParseLevel(cfg.Log.Level); err == nil {
			s.level.SetLevel(lvl)
		}
	}
	s.logger.Info("configuration reloaded", zap.String("base_url", cfg.API.BaseURL))
}

// Mount issues the category fetch and the first listing fetch together, the
// way the listing page does when it is shown, and waits for both to settle.
// The returned error is the first fetch failure; the failure is also
// recorded in the store state.
//
// Mount 同时发起分类获取和第一次列表获取（与列表页显示时相同），并等待两者结算。
// 返回的错误是第一个获取失败，该失败同时记录在存储状态中。
func (s *Storefront) Mount(ctx context.Context, q catalog.ProductQuery) error {
	g, gctx := errgroup.WithContext(ctx)
	wait := func(req *store.Request) func() error {
		return func() error {
			if err := req.Wait(gctx); err != nil {
				return err
			}
			return req.Err()
		}
	}
	g.Go(wait(s.store.RequestCategories()))
	g.Go(wait(s.store.RequestProducts(q)))
	return g.Wait()
}

// Store returns the remote collection store.
func (s *Storefront) Store() *store.Store { return s.store }

// Client returns the HTTP catalog client.
func (s *Storefront) Client() *client.Client { return s.client }

// Metrics returns the fetch metrics, nil when metrics are disabled.
func (s *Storefront) Metrics() *metrics.Metrics { return s.metrics }

// Logger returns the storefront logger.
func (s *Storefront) Logger() *zap.Logger { return s.logger }

// Config returns the configuration the storefront was built from.
func (s *Storefront) Config() *configs.Config { return s.cfg }

// Close releases the store and stops configuration watching.
//
// Close 释放存储并停止配置监视。
func (s *Storefront) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.store.Close()
		if s.viper != nil {
			s.viper.Close()
		}
		_ = s.logger.Sync()
	})
	return err
}
