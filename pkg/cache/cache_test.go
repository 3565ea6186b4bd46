package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Humphrey-He/storefront/configs"
	"github.com/Humphrey-He/storefront/pkg/catalog"
	"github.com/Humphrey-He/storefront/pkg/codec"
)

func newTestMemory(t *testing.T, maxEntries int, ttl time.Duration) (*memoryCache, *time.Time) {
	t.Helper()
	c := NewMemory(maxEntries, ttl, 0).(*memoryCache)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	t.Cleanup(func() { c.Close() })
	return c, &now
}

func TestMemoryGetSetDelete(t *testing.T) {
	c, _ := newTestMemory(t, 0, time.Minute)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("Get(k) = %q, %v, %v", got, ok, err)
	}

	deleted, err := c.Delete(ctx, "k")
	if err != nil || !deleted {
		t.Errorf("Delete(k) = %v, %v", deleted, err)
	}
	deleted, _ = c.Delete(ctx, "k")
	if deleted {
		t.Error("second Delete should report false")
	}

	stats, _ := c.Stats(ctx)
	if stats.Hits != 1 || stats.Misses != 1 || stats.EntryCount != 0 || stats.Size != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestMemoryTTL(t *testing.T) {
	c, now := newTestMemory(t, 0, time.Minute)
	ctx := context.Background()

	tests := []struct {
		name    string
		ttl     time.Duration
		advance time.Duration
		want    bool
	}{
		{"default ttl alive", 0, 30 * time.Second, true},
		{"default ttl expired", 0, 2 * time.Minute, false},
		{"explicit ttl expired", time.Second, 2 * time.Second, false},
		{"never expires", -1, 24 * time.Hour, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Set(ctx, tt.name, []byte("x"), tt.ttl); err != nil {
				t.Fatal(err)
			}
			start := *now
			*now = now.Add(tt.advance)
			defer func() { *now = start }()

			if _, ok, _ := c.Get(ctx, tt.name); ok != tt.want {
				t.Errorf("Get() found = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestMemoryDeleteExpired(t *testing.T) {
	c, now := newTestMemory(t, 0, 0)
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("a"), time.Second)
	_ = c.Set(ctx, "long", []byte("b"), time.Hour)
	_ = c.Set(ctx, "forever", []byte("c"), 0)
	*now = now.Add(time.Minute)

	if removed := c.DeleteExpired(); removed != 1 {
		t.Errorf("DeleteExpired() = %d, want 1", removed)
	}
	stats, _ := c.Stats(ctx)
	if stats.EntryCount != 2 {
		t.Errorf("EntryCount = %d, want 2", stats.EntryCount)
	}
}

func TestMemoryEvictsOldest(t *testing.T) {
	c, _ := newTestMemory(t, 2, 0)
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)
	_ = c.Set(ctx, "a", []byte("3"), 0)
	_ = c.Set(ctx, "c", []byte("4"), 0)

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok, _ := c.Get(ctx, key); !ok {
			t.Errorf("%s should still be cached", key)
		}
	}
	stats, _ := c.Stats(ctx)
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestMemoryClearAndClose(t *testing.T) {
	c, _ := newTestMemory(t, 0, 0)
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), 0)
	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("Clear left an entry behind")
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if err := c.Set(ctx, "a", nil, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close = %v, want ErrClosed", err)
	}
	if _, _, err := c.Get(ctx, "a"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close = %v, want ErrClosed", err)
	}
}

func TestMemoryCleanupLoop(t *testing.T) {
	c := NewMemory(0, 0, 10*time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), 5*time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats, _ := c.Stats(ctx)
		if stats.EntryCount == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("cleanup loop did not remove the expired entry")
}

func TestMemoryConcurrentAccess(t *testing.T) {
	c := NewMemory(50, time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := string(rune('a' + (i+j)%26))
				_ = c.Set(ctx, key, []byte{byte(j)}, 0)
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	stats, _ := c.Stats(ctx)
	if stats.EntryCount > 50 {
		t.Errorf("EntryCount = %d exceeds the limit", stats.EntryCount)
	}
}

func TestTypedValues(t *testing.T) {
	for _, name := range []string{codec.JSON, codec.Gob} {
		t.Run(name, func(t *testing.T) {
			c, err := NewWithOptions("test", WithCodec(name), WithCleanupInterval(0))
			if err != nil {
				t.Fatal(err)
			}
			defer c.Close()
			ctx := context.Background()

			want := []catalog.Category{{ID: "c1", Name: "Phones"}, {ID: "c2", Name: "Audio"}}
			if err := SetValue(ctx, c, "categories", want, 0); err != nil {
				t.Fatalf("SetValue() error: %v", err)
			}
			var got []catalog.Category
			ok, err := GetValue(ctx, c, "categories", &got)
			if err != nil || !ok {
				t.Fatalf("GetValue() = %v, %v", ok, err)
			}
			if len(got) != 2 || got[1].Name != "Audio" {
				t.Errorf("GetValue() = %+v", got)
			}

			var page catalog.ProductPage
			if ok, err := GetValue(ctx, c, "missing", &page); ok || err != nil {
				t.Errorf("GetValue(missing) = %v, %v", ok, err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"empty name", func(c *Config) { c.Name = "" }, true},
		{"unknown backend", func(c *Config) { c.Backend = "memcached" }, true},
		{"redis without address", func(c *Config) { c.Backend = BackendRedis; c.Redis.Addr = "" }, true},
		{"unknown codec", func(c *Config) { c.Codec = "xml" }, true},
		{"negative entries", func(c *Config) { c.MaxEntries = -1 }, true},
		{"negative ttl", func(c *Config) { c.DefaultTTL = -time.Second }, true},
		{"tiny cleanup interval", func(c *Config) { c.CleanupInterval = time.Microsecond }, true},
		{"no cleanup", func(c *Config) { c.CleanupInterval = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	app := configs.DefaultConfig().Cache
	cfg := FromAppConfig("catalogapi", app)
	if cfg.Name != "catalogapi" || cfg.Backend != app.Backend || cfg.DefaultTTL != app.DefaultTTL {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}
	if cfg.Redis.KeyPrefix != app.Redis.KeyPrefix {
		t.Errorf("KeyPrefix = %q, want %q", cfg.Redis.KeyPrefix, app.Redis.KeyPrefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default app cache config invalid: %v", err)
	}
}

// TestRedisBackend runs against a live server when STOREFRONT_TEST_REDIS_ADDR is set.
func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("STOREFRONT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STOREFRONT_TEST_REDIS_ADDR not set")
	}
	c, err := NewWithOptions("redis-test", WithRedis(RedisOptions{
		Addr:      addr,
		KeyPrefix: "storefront-test:",
	}))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()
	defer c.Clear(ctx)

	price := decimal.RequireFromString("19.99")
	want := catalog.Product{ID: "p1", Name: "Cable", Price: price}
	if err := SetValue(ctx, c, "product:p1", want, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got catalog.Product
	if ok, err := GetValue(ctx, c, "product:p1", &got); err != nil || !ok {
		t.Fatalf("GetValue() = %v, %v", ok, err)
	}
	if !got.Price.Equal(price) {
		t.Errorf("Price = %s, want %s", got.Price, price)
	}

	if deleted, err := c.Delete(ctx, "product:p1"); err != nil || !deleted {
		t.Errorf("Delete() = %v, %v", deleted, err)
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1", stats.Hits)
	}
}
