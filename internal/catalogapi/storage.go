// Package catalogapi implements the development catalog server: an in-memory
// catalog behind the two read endpoints the storefront client consumes.
//
// Package catalogapi 实现开发用目录服务器：在店面客户端使用的两个只读端点之后
// 提供一个内存目录。
package catalogapi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Humphrey-He/storefront/pkg/catalog"
)

// Seed is the on-disk shape of a catalog file.
//
// Seed 是目录文件在磁盘上的结构。
type Seed struct {
	Categories []catalog.Category `json:"categories"`
	Products   []catalog.Product  `json:"products"`
}

// Storage holds the catalog in memory. Products are kept sorted by ID so
// listings are stable across requests.
//
// Storage 在内存中保存目录。商品按ID排序，使列表在多次请求间保持稳定。
type Storage struct {
	mu         sync.RWMutex
	products   []catalog.Product
	categories []catalog.Category
}

// NewStorage creates a storage from a seed.
//
// NewStorage 根据种子数据创建存储。
func NewStorage(seed Seed) *Storage {
	products := append([]catalog.Product(nil), seed.Products...)
	sort.SliceStable(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return &Storage{
		products:   products,
		categories: append([]catalog.Category{}, seed.Categories...),
	}
}

// LoadSeed reads a catalog from a .json, .yaml or .yml file. YAML documents
// are converted to JSON first so both formats share the json field names.
//
// LoadSeed 从 .json、.yaml 或 .yml 文件读取目录。YAML文档会先转换为JSON，
// 使两种格式共享相同的json字段名。
func LoadSeed(path string) (Seed, error) {
	var seed Seed
	data, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("read seed file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return seed, fmt.Errorf("parse seed file %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return seed, fmt.Errorf("convert seed file %s: %w", path, err)
		}
	default:
		return seed, fmt.Errorf("unsupported seed file format: %s", path)
	}

	if err := json.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return seed, nil
}

// ListProducts returns the page of products matching q. TotalProducts counts
// every match, not just the returned page.
//
// ListProducts 返回匹配q的商品页。TotalProducts 统计所有匹配项，而不仅是返回的页。
func (s *Storage) ListProducts(_ context.Context, q catalog.ProductQuery) catalog.ProductPage {
	q = q.Normalize(catalog.DefaultPageSize)
	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		if keyword != "" &&
			!strings.Contains(strings.ToLower(p.Name), keyword) &&
			!strings.Contains(strings.ToLower(p.Brand), keyword) {
			continue
		}
		if q.CategoryID != "" && p.Category.ID != q.CategoryID {
			continue
		}
		price := p.EffectivePrice()
		if q.MinPrice != nil && price.LessThan(*q.MinPrice) {
			continue
		}
		if q.MaxPrice != nil && price.GreaterThan(*q.MaxPrice) {
			continue
		}
		matches = append(matches, p)
	}

	// Compare page counts before multiplying so huge page numbers cannot overflow.
	start := len(matches)
	if pages := (len(matches) + q.Limit - 1) / q.Limit; q.Page-1 < pages {
		start = (q.Page - 1) * q.Limit
	}
	end := start + q.Limit
	if end > len(matches) {
		end = len(matches)
	}
	return catalog.ProductPage{
		Products:      append([]catalog.Product{}, matches[start:end]...),
		TotalProducts: len(matches),
	}
}

// Categories returns every category.
//
// Categories 返回所有分类。
func (s *Storage) Categories(context.Context) []catalog.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]catalog.Category{}, s.categories...)
}

// Len returns the number of products.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// SampleSeed returns the built-in catalog: four categories with a mix of
// regular, discounted and flagged products.
//
// SampleSeed 返回内置目录：四个分类，包含常规、折扣和带标记的商品。
func SampleSeed() Seed {
	categories := []catalog.Category{
		{ID: "cat-audio", Name: "Audio"},
		{ID: "cat-laptops", Name: "Laptops"},
		{ID: "cat-phones", Name: "Phones"},
		{ID: "cat-wearables", Name: "Wearables"},
	}
	brands := []string{"Acme", "Nimbus", "Orbit", "Vertex"}

	products := make([]catalog.Product, 0, 40)
	for i := 1; i <= 40; i++ {
		cat := categories[(i-1)%len(categories)]
		price := decimal.NewFromInt(int64(i) * 250)
		p := catalog.Product{
			ID:             fmt.Sprintf("p%03d", i),
			Name:           fmt.Sprintf("%s %s %d", brands[i%len(brands)], strings.TrimSuffix(cat.Name, "s"), i),
			Description:    fmt.Sprintf("Sample %s product number %d", strings.ToLower(cat.Name), i),
			Price:          price,
			Stock:          (i * 7) % 23,
			Images:         []string{fmt.Sprintf(`uploads\products\p%03d-front.jpg`, i)},
			IsTrending:     i%5 == 0,
			IsBestSeller:   i%7 == 0,
			IsJustLaunched: i > 35,
			Category:       catalog.CategoryRef{ID: cat.ID, Name: cat.Name},
			Brand:          brands[i%len(brands)],
		}
		if i%3 == 0 {
			mrp := price.Add(decimal.NewFromInt(100))
			special := price.Mul(decimal.RequireFromString("0.8")).Round(2)
			p.MRP = &mrp
			p.SpecialPrice = &special
		}
		switch cat.ID {
		case "cat-phones":
			p.Attributes = []catalog.Attribute{
				{Name: "Ram", Values: []string{"8GB", "12GB"}},
				{Name: "Storage", Values: []string{"128GB", "256GB", "512GB"}},
			}
		case "cat-laptops":
			p.Attributes = []catalog.Attribute{
				{Name: "Ram", Values: []string{"16GB", "32GB"}},
				{Name: "Storage", Values: []string{"512GB", "1TB"}},
			}
		default:
			p.Attributes = []catalog.Attribute{{Name: "Colour", Values: []string{"Black", "White"}}}
		}
		products = append(products, p)
	}
	return Seed{Categories: categories, Products: products}
}
