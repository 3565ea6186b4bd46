package catalogapi

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Humphrey-He/storefront/pkg/catalog"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func testSeed() Seed {
	special := decimal.NewFromInt(80)
	return Seed{
		Categories: []catalog.Category{{ID: "c1", Name: "Phones"}, {ID: "c2", Name: "Audio"}},
		Products: []catalog.Product{
			{ID: "p3", Name: "Budget Phone", Brand: "Acme", Price: decimal.NewFromInt(100), SpecialPrice: &special, Category: catalog.CategoryRef{ID: "c1"}},
			{ID: "p1", Name: "Flagship Phone", Brand: "Nimbus", Price: decimal.NewFromInt(900), Category: catalog.CategoryRef{ID: "c1"}},
			{ID: "p2", Name: "Earbuds", Brand: "ACME", Price: decimal.NewFromInt(50), Category: catalog.CategoryRef{ID: "c2"}},
			{ID: "p4", Name: "Speaker", Brand: "Orbit", Price: decimal.NewFromInt(200), Category: catalog.CategoryRef{ID: "c2"}},
		},
	}
}

func ids(page catalog.ProductPage) []string {
	out := make([]string, 0, len(page.Products))
	for _, p := range page.Products {
		out = append(out, p.ID)
	}
	return out
}

func TestStorageListProducts(t *testing.T) {
	s := NewStorage(testSeed())
	tests := []struct {
		name      string
		query     catalog.ProductQuery
		wantIDs   []string
		wantTotal int
	}{
		{"all sorted by id", catalog.ProductQuery{}, []string{"p1", "p2", "p3", "p4"}, 4},
		{"keyword matches name", catalog.ProductQuery{Keyword: "PHONE"}, []string{"p1", "p3"}, 2},
		{"keyword matches brand", catalog.ProductQuery{Keyword: "acme"}, []string{"p2", "p3"}, 2},
		{"category", catalog.ProductQuery{CategoryID: "c2"}, []string{"p2", "p4"}, 2},
		{"price uses special price", catalog.ProductQuery{MinPrice: price("60"), MaxPrice: price("90")}, []string{"p3"}, 1},
		{"price bounds inclusive", catalog.ProductQuery{MinPrice: price("50"), MaxPrice: price("200")}, []string{"p2", "p3", "p4"}, 3},
		{"second page", catalog.ProductQuery{Page: 2, Limit: 3}, []string{"p4"}, 4},
		{"page past the end", catalog.ProductQuery{Page: 9, Limit: 3}, []string{}, 4},
		{"no match", catalog.ProductQuery{Keyword: "tablet"}, []string{}, 0},
		{"huge page number", catalog.ProductQuery{Page: math.MaxInt64/10 + 2, Limit: 10}, []string{}, 4},
		{"max page number", catalog.ProductQuery{Page: math.MaxInt, Limit: 3}, []string{}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := s.ListProducts(context.Background(), tt.query)
			got := ids(page)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", got, tt.wantIDs)
			}
			for i := range got {
				if got[i] != tt.wantIDs[i] {
					t.Fatalf("ids = %v, want %v", got, tt.wantIDs)
				}
			}
			if page.TotalProducts != tt.wantTotal {
				t.Errorf("TotalProducts = %d, want %d", page.TotalProducts, tt.wantTotal)
			}
			if page.Products == nil {
				t.Error("Products must not be nil")
			}
		})
	}
}

func TestLoadSeed(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "seed.json")
	yamlPath := filepath.Join(dir, "seed.yaml")

	if err := os.WriteFile(jsonPath, []byte(`{
		"categories": [{"_id": "c1", "name": "Phones"}],
		"products": [{"_id": "p1", "name": "Phone", "price": 499.5, "category": {"_id": "c1", "name": "Phones"}}]
	}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(yamlPath, []byte(`
categories:
  - _id: c1
    name: Phones
products:
  - _id: p1
    name: Phone
    price: "499.5"
    specialPrice: 450
    category:
      _id: c1
      name: Phones
`), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{jsonPath, yamlPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			seed, err := LoadSeed(path)
			if err != nil {
				t.Fatalf("LoadSeed() error: %v", err)
			}
			if len(seed.Categories) != 1 || len(seed.Products) != 1 {
				t.Fatalf("seed = %+v", seed)
			}
			p := seed.Products[0]
			if p.ID != "p1" || p.Category.ID != "c1" || !p.Price.Equal(decimal.RequireFromString("499.5")) {
				t.Errorf("product = %+v", p)
			}
		})
	}

	if _, err := LoadSeed(filepath.Join(dir, "seed.toml")); err == nil {
		t.Error("LoadSeed should reject unknown formats")
	}
	if _, err := LoadSeed(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadSeed should fail for a missing file")
	}
}

func TestSampleSeed(t *testing.T) {
	seed := SampleSeed()
	if len(seed.Categories) != 4 || len(seed.Products) != 40 {
		t.Fatalf("sample seed has %d categories, %d products", len(seed.Categories), len(seed.Products))
	}
	known := make(map[string]bool)
	for _, c := range seed.Categories {
		known[c.ID] = true
	}
	onSale := 0
	for _, p := range seed.Products {
		if !known[p.Category.ID] {
			t.Errorf("product %s references unknown category %s", p.ID, p.Category.ID)
		}
		if p.OnSale() {
			onSale++
			if p.DiscountPercent() <= 0 {
				t.Errorf("product %s on sale without a discount", p.ID)
			}
		}
	}
	if onSale == 0 {
		t.Error("sample seed should contain discounted products")
	}
}
