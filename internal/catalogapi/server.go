package catalogapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Humphrey-He/storefront/configs"
	"github.com/Humphrey-He/storefront/internal/metrics"
	"github.com/Humphrey-He/storefront/pkg/cache"
)

// Server is the development catalog server.
//
// Server 是开发用目录服务器。
type Server struct {
	cfg     *configs.Config
	logger  *zap.Logger
	storage *Storage
	cache   *cache.Cache
	metrics *metrics.Metrics
	engine  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithStorage replaces the seeded storage.
func WithStorage(s *Storage) Option {
	return func(srv *Server) { srv.storage = s }
}

// WithCache replaces the cache built from configuration.
func WithCache(c *cache.Cache) Option {
	return func(srv *Server) { srv.cache = c }
}

// NewServer builds the server from configuration: the storage from
// server.seed_file or the sample catalog, the response cache from the cache
// section and the metrics from the metrics section.
//
// NewServer 根据配置构建服务器：存储来自 server.seed_file 或示例目录，
// 响应缓存来自cache部分，指标来自metrics部分。
//
// Parameters:
//   - cfg: The application configuration
//   - logger: Logger for requests and cache events
//   - opts: Overrides, mostly for tests
//
// Returns:
//   - *Server: The server, ready to Run
//   - error: An error if the seed file or the cache backend cannot be loaded
func NewServer(cfg *configs.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = configs.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(srv)
	}

	if srv.storage == nil {
		seed := SampleSeed()
		if cfg.Server.SeedFile != "" {
			var err error
			if seed, err = LoadSeed(cfg.Server.SeedFile); err != nil {
				return nil, err
			}
		}
		srv.storage = NewStorage(seed)
	}

	if srv.cache == nil && cfg.Cache.Enable {
		c, err := cache.New(cache.FromAppConfig("catalogapi", cfg.Cache))
		if err != nil {
			return nil, err
		}
		srv.cache = c
	}

	if cfg.Metrics.Enable {
		srv.metrics = metrics.New(&metrics.Config{
			Level:                  metrics.ParseLevel(cfg.Metrics.Level),
			EnableLatencyHistogram: metrics.ParseLevel(cfg.Metrics.Level) == metrics.Detailed,
			HistogramBuckets:       cfg.Metrics.HistogramBuckets,
		})
	}

	srv.engine = srv.routes()
	return srv, nil
}

func (s *Server) routes() *gin.Engine {
	if s.cfg.Server.Mode != "" {
		gin.SetMode(s.cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(s.logger))

	h := NewHandler(NewService(s.storage, s.cache, s.metrics, s.logger, s.cfg.Cache.DefaultTTL))
	auth := KeyAuth(s.cfg.API.SecretKey)
	r.GET("/api/product", RouteMetrics(s.metrics, metrics.Products), auth, h.ListProducts)
	r.GET("/api/category/fetch", RouteMetrics(s.metrics, metrics.Categories), auth, h.ListCategories)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "products": s.storage.Len()})
	})
	if s.metrics != nil {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(metrics.NewPrometheusExporter(s.metrics, "catalogapi")))
	}
	if s.cache != nil {
		r.GET("/cache/stats", func(c *gin.Context) {
			stats, err := s.cache.Stats(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, response{Message: "Failed to get cache stats"})
				return
			}
			c.JSON(http.StatusOK, stats)
		})
	}
	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Metrics returns the server metrics, nil when disabled.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Run serves on server.addr until ctx is cancelled, then shuts down
// gracefully within server.shutdown_timeout.
//
// Run 在 server.addr 上提供服务直到ctx被取消，然后在
// server.shutdown_timeout 内优雅关闭。
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
//
// Serve 在已有的监听器上执行Run。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("catalog server listening",
			zap.String("addr", ln.Addr().String()),
			zap.Int("products", s.storage.Len()),
		)
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := s.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.logger.Info("catalog server shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if s.cache != nil {
		if cerr := s.cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
