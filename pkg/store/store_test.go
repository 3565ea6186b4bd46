package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Humphrey-He/storefront/internal/metrics"
	"github.com/Humphrey-He/storefront/pkg/catalog"
	sferrors "github.com/Humphrey-He/storefront/pkg/errors"
	"github.com/Humphrey-He/storefront/pkg/loader"
)

type result struct {
	page catalog.ProductPage
	err  error
}

type pendingCall struct {
	query catalog.ProductQuery
	reply chan result
}

// gatedProducts blocks every Load until the test replies, so the test decides
// the order in which fetches settle.
type gatedProducts struct {
	calls chan pendingCall
}

func newGatedProducts() *gatedProducts {
	return &gatedProducts{calls: make(chan pendingCall, 16)}
}

func (g *gatedProducts) Load(ctx context.Context, q catalog.ProductQuery) (catalog.ProductPage, error) {
	c := pendingCall{query: q, reply: make(chan result, 1)}
	g.calls <- c
	select {
	case r := <-c.reply:
		return r.page, r.err
	case <-ctx.Done():
		return catalog.ProductPage{}, ctx.Err()
	}
}

// next receives n pending calls and indexes them by page.
func (g *gatedProducts) next(t *testing.T, n int) map[int]pendingCall {
	t.Helper()
	byPage := make(map[int]pendingCall, n)
	for i := 0; i < n; i++ {
		select {
		case c := <-g.calls:
			byPage[c.query.Page] = c
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for call %d of %d", i+1, n)
		}
	}
	return byPage
}

func staticCategories(items []catalog.Category, err error) CategoryLoader {
	return loader.LoaderFunc[loader.None, []catalog.Category](func(context.Context, loader.None) ([]catalog.Category, error) {
		return items, err
	})
}

func staticProducts(page catalog.ProductPage, err error) ProductLoader {
	return loader.LoaderFunc[catalog.ProductQuery, catalog.ProductPage](func(context.Context, catalog.ProductQuery) (catalog.ProductPage, error) {
		return page, err
	})
}

func wait(t *testing.T, req *Request) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := req.Wait(ctx); err != nil {
		t.Fatalf("request %s did not settle: %v", req.ID, err)
	}
}

func products(ids ...string) []catalog.Product {
	out := make([]catalog.Product, len(ids))
	for i, id := range ids {
		out[i] = catalog.Product{ID: id, Name: "product " + id, Price: decimal.NewFromInt(int64(100 * (i + 1)))}
	}
	return out
}

func TestRequestProductsIsLoadingImmediately(t *testing.T) {
	gate := newGatedProducts()
	s := New(gate, staticCategories(nil, nil))
	defer s.Close()

	if got := s.ProductStatus(); got != StatusIdle {
		t.Fatalf("initial status = %v, want idle", got)
	}

	req := s.RequestProducts(catalog.ProductQuery{Page: 1})
	if got := s.ProductStatus(); got != StatusLoading {
		t.Fatalf("status after request = %v, want loading", got)
	}
	if !s.IsLoadingProducts() {
		t.Error("IsLoadingProducts() = false while loading")
	}

	calls := gate.next(t, 1)
	calls[1].reply <- result{page: catalog.ProductPage{Products: products("p1"), TotalProducts: 1}}
	wait(t, req)

	state := s.ProductState()
	if state.Status != StatusSucceeded || len(state.Items) != 1 || state.TotalCount != 1 {
		t.Errorf("unexpected state after success: %+v", state)
	}
	if state.RequestID != req.ID {
		t.Errorf("RequestID = %q, want %q", state.RequestID, req.ID)
	}
	if s.IsLoadingProducts() {
		t.Error("IsLoadingProducts() = true after success")
	}
}

func TestRequestProductsDefaults(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		query     catalog.ProductQuery
		wantPage  int
		wantLimit int
	}{
		{"zero query", nil, catalog.ProductQuery{}, 1, 10},
		{"explicit page", nil, catalog.ProductQuery{Page: 3}, 3, 10},
		{"page size option", []Option{WithPageSize(20)}, catalog.ProductQuery{}, 1, 20},
		{"caller limit ignored", nil, catalog.ProductQuery{Page: 1, Limit: 50}, 1, 10},
		{"caller limit ignored with page size option", []Option{WithPageSize(20)}, catalog.ProductQuery{Limit: 5}, 1, 20},
		{"out of range limit ignored", nil, catalog.ProductQuery{Limit: 500}, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got catalog.ProductQuery
			l := loader.LoaderFunc[catalog.ProductQuery, catalog.ProductPage](func(_ context.Context, q catalog.ProductQuery) (catalog.ProductPage, error) {
				got = q
				return catalog.ProductPage{}, nil
			})
			s := New(l, staticCategories(nil, nil), tt.opts...)
			defer s.Close()

			wait(t, s.RequestProducts(tt.query))
			if got.Page != tt.wantPage || got.Limit != tt.wantLimit {
				t.Errorf("loader saw page=%d limit=%d, want %d/%d", got.Page, got.Limit, tt.wantPage, tt.wantLimit)
			}
			if want := fmt.Sprintf("page=%d&limit=%d", tt.wantPage, tt.wantLimit); got.Encode() != want {
				t.Errorf("encoded query = %q, want %q", got.Encode(), want)
			}
			if s.ProductState().Status != StatusSucceeded {
				t.Errorf("status = %s, want succeeded", s.ProductState().Status)
			}
		})
	}
}

func TestRequestCategoriesIdempotent(t *testing.T) {
	cats := []catalog.Category{{ID: "c1", Name: "Phones"}, {ID: "c2", Name: "Laptops"}}
	s := New(staticProducts(catalog.ProductPage{}, nil), staticCategories(cats, nil))
	defer s.Close()

	wait(t, s.RequestCategories())
	first := s.Categories()
	wait(t, s.RequestCategories())
	second := s.Categories()

	if fmt.Sprint(first) != fmt.Sprint(second) || len(second) != 2 {
		t.Errorf("categories changed between identical fetches: %v vs %v", first, second)
	}
	if s.CategoryStatus() != StatusSucceeded {
		t.Errorf("CategoryStatus() = %v, want succeeded", s.CategoryStatus())
	}
}

func TestLastSettledWins(t *testing.T) {
	gate := newGatedProducts()
	s := New(gate, staticCategories(nil, nil))
	defer s.Close()

	req1 := s.RequestProducts(catalog.ProductQuery{Page: 1})
	req2 := s.RequestProducts(catalog.ProductQuery{Page: 2})
	calls := gate.next(t, 2)

	// Q2 settles first, Q1 last.
	calls[2].reply <- result{page: catalog.ProductPage{Products: products("p21", "p22"), TotalProducts: 30}}
	wait(t, req2)
	if got := s.ProductState(); got.Query.Page != 2 || got.Status != StatusSucceeded {
		t.Fatalf("after Q2 settled: %+v", got)
	}

	calls[1].reply <- result{page: catalog.ProductPage{Products: products("p11"), TotalProducts: 25}}
	wait(t, req1)

	state := s.ProductState()
	if state.Query.Page != 1 || state.TotalCount != 25 || len(state.Items) != 1 || state.Items[0].ID != "p11" {
		t.Errorf("final state should reflect Q1, got %+v", state)
	}
	if req1.Discarded() || req2.Discarded() {
		t.Error("no settlement may be discarded under last-settled-wins")
	}
}

func TestLastSettledWinsFailureOverridesSuccess(t *testing.T) {
	gate := newGatedProducts()
	s := New(gate, staticCategories(nil, nil))
	defer s.Close()

	req1 := s.RequestProducts(catalog.ProductQuery{Page: 1})
	req2 := s.RequestProducts(catalog.ProductQuery{Page: 2})
	calls := gate.next(t, 2)

	calls[2].reply <- result{page: catalog.ProductPage{Products: products("p21"), TotalProducts: 11}}
	wait(t, req2)
	calls[1].reply <- result{err: errors.New("connection reset")}
	wait(t, req1)

	state := s.ProductState()
	if state.Status != StatusFailed || state.LastError != sferrors.DefaultProductMessage {
		t.Errorf("expected late failure to win, got %+v", state)
	}
	if state.TotalCount != 11 || state.Items[0].ID != "p21" {
		t.Errorf("failure must keep Q2's data, got %+v", state)
	}
}

func TestDiscardStale(t *testing.T) {
	t.Run("older settles last", func(t *testing.T) {
		gate := newGatedProducts()
		m := metrics.New(&metrics.Config{Level: metrics.Basic})
		s := New(gate, staticCategories(nil, nil), WithStalePolicy(DiscardStale), WithMetrics(m))
		defer s.Close()

		req1 := s.RequestProducts(catalog.ProductQuery{Page: 1})
		req2 := s.RequestProducts(catalog.ProductQuery{Page: 2})
		calls := gate.next(t, 2)

		calls[2].reply <- result{page: catalog.ProductPage{Products: products("p21"), TotalProducts: 30}}
		wait(t, req2)
		calls[1].reply <- result{page: catalog.ProductPage{Products: products("p11"), TotalProducts: 25}}
		wait(t, req1)

		state := s.ProductState()
		if state.Query.Page != 2 || state.TotalCount != 30 {
			t.Errorf("final state should reflect the latest issued query, got %+v", state)
		}
		if !req1.Discarded() || req2.Discarded() {
			t.Errorf("Discarded() = %v/%v, want true/false", req1.Discarded(), req2.Discarded())
		}
		if got := m.GetSnapshot().Collection(metrics.Products).Discarded; got != 1 {
			t.Errorf("discarded counter = %d, want 1", got)
		}
	})

	t.Run("older settles first", func(t *testing.T) {
		gate := newGatedProducts()
		s := New(gate, staticCategories(nil, nil), WithStalePolicy(DiscardStale))
		defer s.Close()

		req1 := s.RequestProducts(catalog.ProductQuery{Page: 1})
		req2 := s.RequestProducts(catalog.ProductQuery{Page: 2})
		calls := gate.next(t, 2)

		calls[1].reply <- result{err: errors.New("late")}
		wait(t, req1)
		if got := s.ProductStatus(); got != StatusLoading {
			t.Fatalf("status must stay loading until the latest request settles, got %v", got)
		}

		calls[2].reply <- result{page: catalog.ProductPage{Products: products("p21"), TotalProducts: 30}}
		wait(t, req2)
		if got := s.ProductState(); got.Status != StatusSucceeded || got.Query.Page != 2 {
			t.Errorf("unexpected final state %+v", got)
		}
	})
}

func TestFailureRetainsPriorData(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "server message",
			err:     sferrors.NewFetchError(sferrors.ErrProductFetchFailed, 500, "Database unavailable", nil),
			wantMsg: "Database unavailable",
		},
		{
			name:    "transport error",
			err:     errors.New("dial tcp: connection refused"),
			wantMsg: sferrors.DefaultProductMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := newGatedProducts()
			s := New(gate, staticCategories(nil, nil))
			defer s.Close()

			ok := s.RequestProducts(catalog.ProductQuery{Page: 1})
			gate.next(t, 1)[1].reply <- result{page: catalog.ProductPage{Products: products("p1", "p2"), TotalProducts: 2}}
			wait(t, ok)

			failed := s.RequestProducts(catalog.ProductQuery{Page: 2})
			if s.ProductState().LastError != "" {
				t.Error("LastError must be cleared on the loading transition")
			}
			gate.next(t, 1)[2].reply <- result{err: tt.err}
			wait(t, failed)

			state := s.ProductState()
			if state.Status != StatusFailed {
				t.Errorf("status = %v, want failed", state.Status)
			}
			if state.LastError != tt.wantMsg {
				t.Errorf("LastError = %q, want %q", state.LastError, tt.wantMsg)
			}
			if len(state.Items) != 2 || state.TotalCount != 2 || state.Query.Page != 1 {
				t.Errorf("failure changed retained data: %+v", state)
			}
			if !sferrors.IsProductFetchFailed(failed.Err()) {
				t.Errorf("request error %v is not a product fetch failure", failed.Err())
			}
		})
	}
}

func TestEmptyResultIsSuccess(t *testing.T) {
	s := New(staticProducts(catalog.ProductPage{Products: []catalog.Product{}, TotalProducts: 0}, nil), staticCategories(nil, nil))
	defer s.Close()

	wait(t, s.RequestProducts(catalog.ProductQuery{Keyword: "nothing"}))
	state := s.ProductState()
	if state.Status != StatusSucceeded || state.Items == nil || len(state.Items) != 0 || state.TotalCount != 0 {
		t.Errorf("unexpected state for empty result: %+v", state)
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		name       string
		items      []catalog.Category
		err        error
		wantStatus RequestStatus
		wantLen    int
		wantErr    string
	}{
		{"missing data", nil, nil, StatusSucceeded, 0, ""},
		{"empty data", []catalog.Category{}, nil, StatusSucceeded, 0, ""},
		{"two items", []catalog.Category{{ID: "a"}, {ID: "b"}}, nil, StatusSucceeded, 2, ""},
		{"failure", nil, errors.New("timeout"), StatusFailed, 0, sferrors.DefaultCategoryMessage},
		{
			"failure with message",
			nil,
			sferrors.NewFetchError(sferrors.ErrCategoryFetchFailed, 503, "Maintenance", nil),
			StatusFailed, 0, "Maintenance",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(staticProducts(catalog.ProductPage{}, nil), staticCategories(tt.items, tt.err))
			defer s.Close()

			req := s.RequestCategories()
			wait(t, req)

			state := s.CategoryState()
			if state.Status != tt.wantStatus || len(state.Items) != tt.wantLen || state.LastError != tt.wantErr {
				t.Errorf("unexpected state %+v", state)
			}
			if tt.wantStatus == StatusSucceeded && state.Items == nil {
				t.Error("successful fetch must yield a non-nil empty list")
			}
			if tt.err != nil && !sferrors.IsCategoryFetchFailed(req.Err()) {
				t.Errorf("request error %v is not a category fetch failure", req.Err())
			}
			if s.ProductStatus() != StatusIdle {
				t.Error("category fetch changed the product collection")
			}
		})
	}
}

func TestPriceRangeRecorder(t *testing.T) {
	called := false
	l := loader.LoaderFunc[catalog.ProductQuery, catalog.ProductPage](func(context.Context, catalog.ProductQuery) (catalog.ProductPage, error) {
		called = true
		return catalog.ProductPage{}, nil
	})
	s := New(l, staticCategories(nil, nil))
	defer s.Close()

	if !s.PriceRange().IsZero() {
		t.Error("price range should start empty")
	}

	s.SetPriceRange(decimal.NewFromInt(10), decimal.NewFromInt(500))
	r := s.PriceRange()
	if r.MinPrice == nil || r.MaxPrice == nil || !r.MinPrice.Equal(decimal.NewFromInt(10)) || !r.MaxPrice.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("PriceRange() = %+v, want {10 500}", r)
	}
	if called || s.ProductStatus() != StatusIdle {
		t.Error("SetPriceRange must not trigger a fetch")
	}

	*r.MinPrice = decimal.NewFromInt(99)
	if !s.PriceRange().MinPrice.Equal(decimal.NewFromInt(10)) {
		t.Error("PriceRange() must return a copy")
	}

	q := s.PriceRange().Apply(catalog.ProductQuery{Page: 2})
	if !q.MinPrice.Equal(decimal.NewFromInt(10)) || q.Page != 2 {
		t.Errorf("Apply() = %+v", q)
	}
}

func TestInvalidQueryNeverReachesLoader(t *testing.T) {
	l := loader.LoaderFunc[catalog.ProductQuery, catalog.ProductPage](func(context.Context, catalog.ProductQuery) (catalog.ProductPage, error) {
		t.Error("loader must not be called for an invalid query")
		return catalog.ProductPage{}, nil
	})
	s := New(l, staticCategories(nil, nil))
	defer s.Close()

	minPrice := decimal.NewFromInt(500)
	maxPrice := decimal.NewFromInt(10)
	req := s.RequestProducts(catalog.ProductQuery{MinPrice: &minPrice, MaxPrice: &maxPrice})
	wait(t, req)

	state := s.ProductState()
	if state.Status != StatusFailed || state.LastError == "" {
		t.Errorf("unexpected state %+v", state)
	}
	if !sferrors.IsInvalidQuery(req.Err()) || !sferrors.IsProductFetchFailed(req.Err()) {
		t.Errorf("request error %v should be an invalid query product failure", req.Err())
	}
}

func TestRequestIDReachesLoader(t *testing.T) {
	var seen string
	l := loader.LoaderFunc[catalog.ProductQuery, catalog.ProductPage](func(ctx context.Context, _ catalog.ProductQuery) (catalog.ProductPage, error) {
		seen = loader.RequestIDFrom(ctx)
		return catalog.ProductPage{}, nil
	})
	s := New(l, staticCategories(nil, nil), WithIDGenerator(func() string { return "req-1" }))
	defer s.Close()

	req := s.RequestProducts(catalog.ProductQuery{})
	wait(t, req)
	if seen != "req-1" || req.ID != "req-1" {
		t.Errorf("loader saw request id %q, handle has %q", seen, req.ID)
	}
}

func TestLoaderPanicBecomesFailure(t *testing.T) {
	l := loader.LoaderFunc[catalog.ProductQuery, catalog.ProductPage](func(context.Context, catalog.ProductQuery) (catalog.ProductPage, error) {
		panic("boom")
	})
	s := New(l, staticCategories(nil, nil))
	defer s.Close()

	wait(t, s.RequestProducts(catalog.ProductQuery{}))
	if got := s.ProductStatus(); got != StatusFailed {
		t.Errorf("status = %v, want failed", got)
	}
}

func TestSubscribe(t *testing.T) {
	gate := newGatedProducts()
	s := New(gate, staticCategories(nil, nil))
	defer s.Close()

	var mu sync.Mutex
	var events []Event
	unsubscribe := s.Subscribe(func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	req := s.RequestProducts(catalog.ProductQuery{})
	gate.next(t, 1)[1].reply <- result{page: catalog.ProductPage{Products: products("p1"), TotalProducts: 1}}
	wait(t, req)

	unsubscribe()
	req = s.RequestProducts(catalog.ProductQuery{})
	gate.next(t, 1)[1].reply <- result{}
	wait(t, req)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Status != StatusLoading || events[1].Status != StatusSucceeded {
		t.Errorf("unexpected event order: %+v", events)
	}
	if events[0].Collection != CollectionProducts || events[1].RequestID != events[0].RequestID {
		t.Errorf("unexpected event payload: %+v", events)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	page := catalog.ProductPage{Products: products("p1", "p2"), TotalProducts: 2}
	mrp := decimal.NewFromInt(150)
	page.Products[0].MRP = &mrp
	page.Products[0].Images = []string{"a.jpg"}
	page.Products[0].Attributes = []catalog.Attribute{{Name: "Ram", Values: []string{"8GB", "12GB"}}}
	s := New(staticProducts(page, nil), staticCategories(nil, nil))
	defer s.Close()

	wait(t, s.RequestProducts(catalog.ProductQuery{}))
	items := s.Products()
	items[0].Name = "changed"
	*items[0].MRP = decimal.NewFromInt(1)
	items[0].Images[0] = "changed.jpg"
	items[0].Attributes[0].Values[0] = "1GB"

	got, _ := s.Product("p1")
	if got.Name == "changed" {
		t.Error("mutating a snapshot changed the store")
	}
	if !got.MRP.Equal(decimal.NewFromInt(150)) {
		t.Errorf("MRP = %s, want 150", got.MRP)
	}
	if got.Images[0] != "a.jpg" || got.Attributes[0].Values[0] != "8GB" {
		t.Errorf("nested fields changed: images %v, attributes %+v", got.Images, got.Attributes)
	}

	got.Images[0] = "again.jpg"
	if again, _ := s.Product("p1"); again.Images[0] != "a.jpg" {
		t.Error("Product() returned a record sharing slices with the store")
	}
	if _, ok := s.Product("missing"); ok {
		t.Error("Product() found an unknown id")
	}
}

func TestClose(t *testing.T) {
	gate := newGatedProducts()
	s := New(gate, staticCategories(nil, nil))

	inflight := s.RequestProducts(catalog.ProductQuery{})
	gate.next(t, 1)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	select {
	case <-inflight.Done():
	default:
		t.Fatal("Close() returned before the in-flight fetch settled")
	}
	if !errors.Is(inflight.Err(), context.Canceled) {
		t.Errorf("in-flight fetch error = %v, want context.Canceled", inflight.Err())
	}

	before := s.ProductState()
	late := s.RequestProducts(catalog.ProductQuery{})
	if !sferrors.IsStoreClosed(late.Err()) {
		t.Errorf("request after Close error = %v, want ErrStoreClosed", late.Err())
	}
	if !sferrors.IsStoreClosed(s.RequestCategories().Err()) {
		t.Error("category request after Close must fail with ErrStoreClosed")
	}
	if after := s.ProductState(); after.Status != before.Status {
		t.Errorf("request after Close changed state: %v -> %v", before.Status, after.Status)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestConcurrentRequests(t *testing.T) {
	s := New(staticProducts(catalog.ProductPage{Products: products("p1"), TotalProducts: 1}, nil),
		staticCategories([]catalog.Category{{ID: "c"}}, nil))
	defer s.Close()

	var wg sync.WaitGroup
	reqs := make(chan *Request, 100)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reqs <- s.RequestProducts(catalog.ProductQuery{Page: i%5 + 1})
			reqs <- s.RequestCategories()
			_ = s.Products()
			_ = s.TotalCount()
		}(i)
	}
	wg.Wait()
	close(reqs)
	for req := range reqs {
		wait(t, req)
	}

	if s.ProductStatus() != StatusSucceeded || s.CategoryStatus() != StatusSucceeded {
		t.Errorf("statuses = %v/%v, want succeeded", s.ProductStatus(), s.CategoryStatus())
	}
}

func TestRequestStatus(t *testing.T) {
	tests := []struct {
		status  RequestStatus
		name    string
		loading bool
	}{
		{StatusIdle, "idle", true},
		{StatusLoading, "loading", true},
		{StatusSucceeded, "succeeded", false},
		{StatusFailed, "failed", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.status.String() != tt.name || tt.status.IsLoading() != tt.loading {
				t.Errorf("%d: String()=%q IsLoading()=%v", tt.status, tt.status.String(), tt.status.IsLoading())
			}
			var back RequestStatus
			text, _ := tt.status.MarshalText()
			if err := back.UnmarshalText(text); err != nil || back != tt.status {
				t.Errorf("text round trip: %v, %v", back, err)
			}
		})
	}
	var s RequestStatus
	if err := s.UnmarshalText([]byte("done")); err == nil {
		t.Error("UnmarshalText accepted an unknown name")
	}
}

func TestParseStalePolicy(t *testing.T) {
	for in, want := range map[string]StalePolicy{"": LastSettledWins, "last-settled": LastSettledWins, "discard-stale": DiscardStale} {
		got, err := ParseStalePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseStalePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStalePolicy("newest"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
