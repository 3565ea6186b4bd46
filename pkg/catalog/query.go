package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DefaultPageSize is the fixed listing page size the API is queried with.
//
// DefaultPageSize 是查询API时使用的固定分页大小。
const DefaultPageSize = 10

// ProductQuery holds the parameters of one product listing fetch.
// A zero Page or Limit is filled in by Normalize. The store always replaces
// Limit with its page size; only the catalog server honours a caller Limit.
//
// ProductQuery 保存一次商品列表获取的参数。
// 为零的 Page 或 Limit 由 Normalize 填充。存储总是用其分页大小替换 Limit，
// 只有目录服务器会采用调用方提供的 Limit。
type ProductQuery struct {
	Page       int              `json:"page" validate:"gte=0"`
	Limit      int              `json:"limit" validate:"gte=0,lte=100"`
	Keyword    string           `json:"keyword,omitempty" validate:"max=200"`
	CategoryID string           `json:"category,omitempty" validate:"max=128"`
	MinPrice   *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice   *decimal.Decimal `json:"maxPrice,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(productQueryRules, ProductQuery{})
	return v
}

func productQueryRules(sl validator.StructLevel) {
	q := sl.Current().Interface().(ProductQuery)
	if q.MinPrice != nil && q.MinPrice.IsNegative() {
		sl.ReportError(q.MinPrice, "MinPrice", "minPrice", "gte", "0")
	}
	if q.MaxPrice != nil && q.MaxPrice.IsNegative() {
		sl.ReportError(q.MaxPrice, "MaxPrice", "maxPrice", "gte", "0")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		sl.ReportError(q.MinPrice, "MinPrice", "minPrice", "ltefield", "MaxPrice")
	}
}

// Validate checks the query and returns an error whose message lists every
// violated rule.
//
// Validate 检查查询，返回的错误信息列出所有违反的规则。
func (q ProductQuery) Validate() error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Field()+": "+FormatValidationError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// FormatValidationError turns a single field error into a readable message.
//
// FormatValidationError 将单个字段错误转换为可读信息。
func FormatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "max":
		return fmt.Sprintf("maximum length is %s", fe.Param())
	case "ltefield":
		return fmt.Sprintf("must not exceed %s", fe.Param())
	default:
		return fmt.Sprintf("validation failed on %s", fe.Tag())
	}
}

// Normalize fills unset fields: page 1 and the given page size.
// The receiver is not modified.
//
// Normalize 填充未设置的字段：第1页和给定的分页大小。接收者不会被修改。
func (q ProductQuery) Normalize(pageSize int) ProductQuery {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = pageSize
	}
	if q.MinPrice != nil {
		v := *q.MinPrice
		q.MinPrice = &v
	}
	if q.MaxPrice != nil {
		v := *q.MaxPrice
		q.MaxPrice = &v
	}
	return q
}

// Encode serializes the query in the order the listing endpoint documents:
// page, limit, then keyword, category, minPrice and maxPrice when set.
//
// Encode 按列表端点约定的顺序序列化查询：page、limit，
// 然后是已设置的 keyword、category、minPrice 和 maxPrice。
func (q ProductQuery) Encode() string {
	var b strings.Builder
	b.WriteString("page=")
	b.WriteString(strconv.Itoa(q.Page))
	b.WriteString("&limit=")
	b.WriteString(strconv.Itoa(q.Limit))
	if q.Keyword != "" {
		b.WriteString("&keyword=")
		b.WriteString(url.QueryEscape(q.Keyword))
	}
	if q.CategoryID != "" {
		b.WriteString("&category=")
		b.WriteString(url.QueryEscape(q.CategoryID))
	}
	if q.MinPrice != nil {
		b.WriteString("&minPrice=")
		b.WriteString(q.MinPrice.String())
	}
	if q.MaxPrice != nil {
		b.WriteString("&maxPrice=")
		b.WriteString(q.MaxPrice.String())
	}
	return b.String()
}

// Key returns a stable identifier for the query, used by caches.
func (q ProductQuery) Key() string {
	return "products?" + q.Encode()
}

// PriceRange is a pair of optional inclusive bounds.
//
// PriceRange 是一对可选的闭区间边界。
type PriceRange struct {
	MinPrice *decimal.Decimal `json:"minPrice"`
	MaxPrice *decimal.Decimal `json:"maxPrice"`
}

// NewPriceRange builds a range with both bounds set.
func NewPriceRange(minPrice, maxPrice decimal.Decimal) PriceRange {
	return PriceRange{MinPrice: &minPrice, MaxPrice: &maxPrice}
}

// IsZero reports whether neither bound is set.
func (r PriceRange) IsZero() bool {
	return r.MinPrice == nil && r.MaxPrice == nil
}

// Apply returns a copy of q carrying the range's bounds.
//
// Apply 返回携带该区间边界的 q 的副本。
func (r PriceRange) Apply(q ProductQuery) ProductQuery {
	q.MinPrice = r.MinPrice
	q.MaxPrice = r.MaxPrice
	return q
}
