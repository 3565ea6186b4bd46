// Package client implements the HTTP catalog client: the product listing and
// category endpoints of the storefront API, exposed as loaders for the store.
//
// Package client 实现HTTP目录客户端：店面API的商品列表和分类端点，
// 并以加载器的形式提供给存储使用。
package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Humphrey-He/storefront/pkg/catalog"
	sferrors "github.com/Humphrey-He/storefront/pkg/errors"
	"github.com/Humphrey-He/storefront/pkg/loader"
)

// API paths and headers.
const (
	ProductsPath   = "/api/product"
	CategoriesPath = "/api/category/fetch"

	KeyHeader       = "key"
	RequestIDHeader = "X-Request-Id"

	maxErrorBody = 1 << 20
)

// Config locates the catalog API.
//
// Config 定位目录API。
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
	UserAgent string
}

// envelope is the response body shape shared by both endpoints.
type envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// Client talks to the catalog API. It is safe for concurrent use.
//
// Client 与目录API通信，可以并发使用。
type Client struct {
	http   *http.Client
	logger *zap.Logger
	newID  func() string

	mu        sync.RWMutex
	baseURL   string
	secretKey string
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The client's own
// timeout is then left to hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client for cfg.
//
// New 为 cfg 创建一个 Client。
//
// Parameters:
//   - cfg: Base URL, secret key and transport timeout
//   - opts: Optional settings
//
// Returns:
//   - *Client: A ready client
//   - error: An error if the base URL is not an absolute http(s) URL
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    zap.NewNop(),
		newID:     uuid.NewString,
		baseURL:   base,
		secretKey: cfg.SecretKey,
		userAgent: cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func normalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "parse base url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.Errorf("base url %q must be an absolute http(s) URL", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// UpdateEndpoint swaps the base URL and secret key, e.g. after a
// configuration reload. Requests already in flight keep the old values.
//
// UpdateEndpoint 替换基础URL和密钥，例如在配置重载之后。已在进行中的请求保留旧值。
func (c *Client) UpdateEndpoint(baseURL, secretKey string) error {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.baseURL = base
	c.secretKey = secretKey
	c.mu.Unlock()
	return nil
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// FetchProducts requests one listing page. Failures of any kind are returned
// as a *errors.FetchError of kind ErrProductFetchFailed.
//
// FetchProducts 请求一页商品列表。任何失败都以 ErrProductFetchFailed 类型的 *errors.FetchError 返回。
func (c *Client) FetchProducts(ctx context.Context, q catalog.ProductQuery) (catalog.ProductPage, error) {
	var body envelope[*catalog.ProductPage]
	if err := c.get(ctx, ProductsPath, q.Encode(), &body, sferrors.ErrProductFetchFailed); err != nil {
		return catalog.ProductPage{}, err
	}
	if body.Data == nil {
		return catalog.ProductPage{}, nil
	}
	return *body.Data, nil
}

// FetchCategories requests the category list. An empty or absent data field
// yields an empty list.
//
// FetchCategories 请求分类列表。data 字段为空或缺失时返回空列表。
func (c *Client) FetchCategories(ctx context.Context) ([]catalog.Category, error) {
	var body envelope[[]catalog.Category]
	if err := c.get(ctx, CategoriesPath, "", &body, sferrors.ErrCategoryFetchFailed); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return []catalog.Category{}, nil
	}
	return body.Data, nil
}

// Products returns the product listing endpoint as a loader.
func (c *Client) Products() loader.Loader[catalog.ProductQuery, catalog.ProductPage] {
	return loader.LoaderFunc[catalog.ProductQuery, catalog.ProductPage](c.FetchProducts)
}

// Categories returns the category endpoint as a loader.
func (c *Client) Categories() loader.Loader[loader.None, []catalog.Category] {
	return loader.LoaderFunc[loader.None, []catalog.Category](func(ctx context.Context, _ loader.None) ([]catalog.Category, error) {
		return c.FetchCategories(ctx)
	})
}

func (c *Client) get(ctx context.Context, path, rawQuery string, out any, kind error) error {
	c.mu.RLock()
	target := c.baseURL + path
	key := c.secretKey
	userAgent := c.userAgent
	c.mu.RUnlock()
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	requestID := loader.RequestIDFrom(ctx)
	if requestID == "" {
		requestID = c.newID()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return sferrors.NewFetchError(kind, 0, "", errors.Wrap(err, "build request"))
	}
	req.Header.Set(KeyHeader, key)
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("catalog request failed",
			zap.String("url", target), zap.String("request_id", requestID), zap.Error(err))
		return sferrors.NewFetchError(kind, 0, "", errors.Wrapf(err, "get %s", path))
	}
	defer resp.Body.Close()

	c.logger.Debug("catalog request",
		zap.String("url", target),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var body envelope[json.RawMessage]
		_ = json.Unmarshal(data, &body)
		cause := errors.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
		if resp.StatusCode == http.StatusUnauthorized {
			cause = errors.Wrapf(sferrors.ErrUnauthorized, "get %s", path)
		}
		return sferrors.NewFetchError(kind, resp.StatusCode, body.Message, cause)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return sferrors.NewFetchError(kind, resp.StatusCode, "", errors.Wrap(err, "decode response"))
	}
	return nil
}
