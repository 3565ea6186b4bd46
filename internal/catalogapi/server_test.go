package catalogapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Humphrey-He/storefront/configs"
	"github.com/Humphrey-He/storefront/internal/metrics"
	"github.com/Humphrey-He/storefront/pkg/catalog"
	"github.com/Humphrey-He/storefront/pkg/client"
	"github.com/Humphrey-He/storefront/pkg/loader"
)

const testKey = "secret"

func testConfig() *configs.Config {
	cfg := configs.DefaultConfig()
	cfg.Server.Mode = "test"
	cfg.API.SecretKey = testKey
	cfg.Cache.Enable = true
	cfg.Cache.CleanupInterval = 0
	cfg.Metrics.Enable = true
	cfg.Metrics.Level = "detailed"
	return cfg
}

func newTestServer(t *testing.T, cfg *configs.Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg, nil, WithStorage(NewStorage(testSeed())))
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	return srv
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func get(t *testing.T, h http.Handler, target, key string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if key != "" {
		req.Header.Set("key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode body %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestServerListProducts(t *testing.T) {
	srv := newTestServer(t, testConfig())

	tests := []struct {
		name       string
		target     string
		key        string
		wantStatus int
		wantIDs    []string
		wantTotal  int
		wantMsg    string
	}{
		{"first page", "/api/product?page=1&limit=2", testKey, 200, []string{"p1", "p2"}, 4, ""},
		{"keyword and category", "/api/product?page=1&limit=10&keyword=phone&category=c1", testKey, 200, []string{"p1", "p3"}, 2, ""},
		{"price range", "/api/product?page=1&limit=10&minPrice=0&maxPrice=100", testKey, 200, []string{"p2", "p3"}, 2, ""},
		{"missing key", "/api/product?page=1&limit=10", "", 401, nil, 0, "Unauthorized"},
		{"wrong key", "/api/product?page=1&limit=10", "nope", 401, nil, 0, "Unauthorized"},
		{"bad page", "/api/product?page=abc", testKey, 400, nil, 0, `invalid page: "abc"`},
		{"bad price", "/api/product?minPrice=cheap", testKey, 400, nil, 0, `invalid minPrice: "cheap"`},
		{"inverted range", "/api/product?minPrice=10&maxPrice=5", testKey, 400, nil, 0, "MinPrice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := get(t, srv.Handler(), tt.target, tt.key)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantMsg != "" {
				if !strings.Contains(env.Message, tt.wantMsg) {
					t.Errorf("message = %q, want it to contain %q", env.Message, tt.wantMsg)
				}
				return
			}
			var page catalog.ProductPage
			if err := json.Unmarshal(env.Data, &page); err != nil {
				t.Fatal(err)
			}
			got := ids(page)
			if strings.Join(got, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
			if page.TotalProducts != tt.wantTotal {
				t.Errorf("totalProducts = %d, want %d", page.TotalProducts, tt.wantTotal)
			}
		})
	}
}

func TestServerCategoriesAndCache(t *testing.T) {
	srv := newTestServer(t, testConfig())

	for i := 0; i < 3; i++ {
		rec, env := get(t, srv.Handler(), "/api/category/fetch", testKey)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var categories []catalog.Category
		if err := json.Unmarshal(env.Data, &categories); err != nil {
			t.Fatal(err)
		}
		if len(categories) != 2 || categories[0].Name != "Phones" {
			t.Fatalf("categories = %+v", categories)
		}
	}

	snap := srv.Metrics().GetSnapshot()
	if snap.CacheMisses != 1 || snap.CacheHits != 2 {
		t.Errorf("cache hits/misses = %d/%d, want 2/1", snap.CacheHits, snap.CacheMisses)
	}
	if c := snap.Collection(metrics.Categories); c.Requests != 3 || c.Successes != 3 {
		t.Errorf("categories counters = %+v", c)
	}

	rec, _ := get(t, srv.Handler(), "/cache/stats", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"hits":2`) {
		t.Errorf("cache stats = %d %s", rec.Code, rec.Body.String())
	}
}

func TestServerHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, testConfig())

	get(t, srv.Handler(), "/api/product", "bad")
	rec, _ := get(t, srv.Handler(), "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"products":4`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = get(t, srv.Handler(), "/metrics", "")
	body := rec.Body.String()
	for _, want := range []string{
		`storefront_requests_total{source="catalogapi",collection="products"} 1`,
		`storefront_failures_total{source="catalogapi",collection="products"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestServerWithoutCacheOrMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enable = false
	cfg.Metrics.Enable = false
	cfg.API.SecretKey = ""
	srv := newTestServer(t, cfg)

	rec, _ := get(t, srv.Handler(), "/api/product", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
	}
	for _, path := range []string{"/metrics", "/cache/stats"} {
		if rec, _ := get(t, srv.Handler(), path, ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
	}
}

// TestServeWithClient drives the server through the HTTP client the store uses.
func TestServeWithClient(t *testing.T) {
	srv := newTestServer(t, testConfig())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	c, err := client.New(client.Config{BaseURL: "http://" + ln.Addr().String(), SecretKey: testKey, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}

	page, err := c.Products().Load(ctx, catalog.ProductQuery{Page: 2, Limit: 3})
	if err != nil {
		t.Fatalf("Products().Load() error: %v", err)
	}
	if got := ids(page); len(got) != 1 || got[0] != "p4" || page.TotalProducts != 4 {
		t.Errorf("page = %v total %d", got, page.TotalProducts)
	}

	categories, err := c.Categories().Load(ctx, loader.None{})
	if err != nil || len(categories) != 2 {
		t.Errorf("Categories().Load() = %v, %v", categories, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
