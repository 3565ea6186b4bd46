// Package catalog defines the catalog records served by the storefront API
// and the pure helpers the listing and detail views derive from them.
//
// Package catalog 定义店面API提供的商品目录记录，
// 以及列表视图和详情视图从中派生数据的纯函数。
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Badge labels shown on listing cards and in the quick view.
const (
	BadgeJustLaunched = "NEW LAUNCH"
	BadgeTrending     = "TRENDING"
	BadgeBestSeller   = "BESTSELLER"
)

// Product is a single catalog record. The store holds products by value and
// replaces them wholesale on every successful fetch; nothing on the client
// mutates them.
//
// Product 是单条目录记录。存储按值持有商品，每次成功获取时整体替换；
// 客户端不会修改它们。
type Product struct {
	ID             string           `json:"_id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	MRP            *decimal.Decimal `json:"mrp,omitempty"`
	SpecialPrice   *decimal.Decimal `json:"specialPrice,omitempty"`
	Stock          int              `json:"stock"`
	Images         []string         `json:"images"`
	FrontImage     string           `json:"frontImage,omitempty"`
	IsTrending     bool             `json:"isTrending"`
	IsBestSeller   bool             `json:"isBestSeller"`
	IsJustLaunched bool             `json:"isJustLaunched"`
	Attributes     []Attribute      `json:"attributes"`
	Category       CategoryRef      `json:"category"`
	Brand          string           `json:"brand,omitempty"`
}

// Attribute is a named group of variant values such as "Ram" or "Storage".
// Values keep the order the API sent them in; duplicates are not filtered.
//
// Attribute 是一组具名的变体取值，例如 "Ram" 或 "Storage"。
// Values 保持API返回的顺序，不做去重。
type Attribute struct {
	ID     string   `json:"_id,omitempty"`
	Name   string   `json:"name"`
	Values []string `json:"value"`
}

// CategoryRef is the category reference embedded in a product.
//
// CategoryRef 是嵌入在商品中的分类引用。
type CategoryRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Category is a record of the category collection.
//
// Category 是分类集合中的一条记录。
type Category struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// ProductPage is the payload of one product listing response.
//
// ProductPage 是一次商品列表响应的数据载荷。
type ProductPage struct {
	Products      []Product `json:"products"`
	TotalProducts int       `json:"totalProducts"`
}

// Clone returns a copy of p that shares no pointers or slices with it.
//
// Clone 返回p的副本，与p不共享任何指针或切片。
func (p Product) Clone() Product {
	if p.MRP != nil {
		v := *p.MRP
		p.MRP = &v
	}
	if p.SpecialPrice != nil {
		v := *p.SpecialPrice
		p.SpecialPrice = &v
	}
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	if p.Attributes != nil {
		attrs := make([]Attribute, len(p.Attributes))
		for i, a := range p.Attributes {
			if a.Values != nil {
				a.Values = append([]string(nil), a.Values...)
			}
			attrs[i] = a
		}
		p.Attributes = attrs
	}
	return p
}

// OnSale reports whether the product carries a non-zero special price.
//
// OnSale 报告商品是否带有非零的特价。
func (p Product) OnSale() bool {
	return p.SpecialPrice != nil && !p.SpecialPrice.IsZero()
}

// EffectivePrice returns the special price when the product is on sale,
// otherwise the regular price.
//
// EffectivePrice 在商品特价时返回特价，否则返回常规价格。
func (p Product) EffectivePrice() decimal.Decimal {
	if p.OnSale() {
		return *p.SpecialPrice
	}
	return p.Price
}

// DiscountPercent returns round((mrp - specialPrice) / mrp * 100), or 0 when
// either price is missing or the MRP is not positive.
//
// DiscountPercent 返回 round((mrp - specialPrice) / mrp * 100)；
// 任一价格缺失或MRP不为正时返回0。
func (p Product) DiscountPercent() int64 {
	if !p.OnSale() || p.MRP == nil || !p.MRP.IsPositive() {
		return 0
	}
	hundred := decimal.NewFromInt(100)
	return p.MRP.Sub(*p.SpecialPrice).Div(*p.MRP).Mul(hundred).Round(0).IntPart()
}

// Badges returns the classification badges in display order.
//
// Badges 按显示顺序返回分类徽章。
func (p Product) Badges() []string {
	var badges []string
	if p.IsJustLaunched {
		badges = append(badges, BadgeJustLaunched)
	}
	if p.IsTrending {
		badges = append(badges, BadgeTrending)
	}
	if p.IsBestSeller {
		badges = append(badges, BadgeBestSeller)
	}
	return badges
}

// Thumbnail returns the listing image URL. The API stores some paths with a
// Windows separator; only the first one is rewritten, matching what the
// listing has always displayed.
//
// Thumbnail 返回列表图片URL。API中部分路径使用Windows分隔符，
// 只替换第一个分隔符，与列表一直以来的显示保持一致。
func (p Product) Thumbnail() string {
	src := p.FrontImage
	if src == "" && len(p.Images) > 0 {
		src = p.Images[0]
	}
	return strings.Replace(src, `\`, "/", 1)
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Attribute returns the attribute with the given name.
//
// Attribute 返回指定名称的属性。
func (p Product) Attribute(name string) (Attribute, bool) {
	for _, attr := range p.Attributes {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// TotalPages returns the number of pages needed to show totalCount items.
//
// TotalPages 返回显示 totalCount 个条目所需的页数。
func TotalPages(totalCount, pageSize int) int {
	if totalCount <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}
