package catalogapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Humphrey-He/storefront/pkg/catalog"
)

// response is the envelope every endpoint answers with.
type response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Handler serves the catalog endpoints.
//
// Handler 提供目录端点。
type Handler struct {
	service *Service
}

// NewHandler creates a handler backed by service.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListProducts handles GET /api/product.
//
// ListProducts 处理 GET /api/product。
func (h *Handler) ListProducts(c *gin.Context) {
	q, err := parseProductQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response{Message: err.Error()})
		return
	}
	if err := q.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, response{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response{Data: h.service.ListProducts(c.Request.Context(), q)})
}

// ListCategories handles GET /api/category/fetch.
//
// ListCategories 处理 GET /api/category/fetch。
func (h *Handler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, response{Data: h.service.Categories(c.Request.Context())})
}

func parseProductQuery(c *gin.Context) (catalog.ProductQuery, error) {
	var q catalog.ProductQuery
	var err error

	if v := c.Query("page"); v != "" {
		if q.Page, err = strconv.Atoi(v); err != nil {
			return q, &paramError{name: "page", value: v}
		}
	}
	if v := c.Query("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil {
			return q, &paramError{name: "limit", value: v}
		}
	}
	q.Keyword = c.Query("keyword")
	q.CategoryID = c.Query("category")

	if q.MinPrice, err = parsePrice(c, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = parsePrice(c, "maxPrice"); err != nil {
		return q, err
	}
	return q, nil
}

func parsePrice(c *gin.Context, name string) (*decimal.Decimal, error) {
	v, ok := c.GetQuery(name)
	if !ok || v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, &paramError{name: name, value: v}
	}
	return &d, nil
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + ": " + strconv.Quote(e.value)
}
