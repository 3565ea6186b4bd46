package store

import (
	"time"

	"github.com/Humphrey-He/storefront/pkg/catalog"
)

// Collection names a collection held by the store.
//
// Collection 标识存储持有的集合。
type Collection string

const (
	CollectionProducts   Collection = "products"
	CollectionCategories Collection = "categories"
)

// ProductCollectionState is the product listing and its fetch lifecycle.
// Items and TotalCount always reflect the most recently applied successful
// fetch: a pending or failed fetch leaves them untouched.
//
// ProductCollectionState 是商品列表及其获取生命周期。
// Items 和 TotalCount 始终反映最近一次被应用的成功获取：
// 进行中或失败的获取不会改变它们。
type ProductCollectionState struct {
	Items      []catalog.Product    `json:"items"`
	TotalCount int                  `json:"totalCount"`
	Status     RequestStatus        `json:"status"`
	LastError  string               `json:"lastError,omitempty"`
	Query      catalog.ProductQuery `json:"query"`     // query of the applied success
	UpdatedAt  time.Time            `json:"updatedAt"` // time of the last applied settlement
	RequestID  string               `json:"requestId,omitempty"`
}

// CategoryCollectionState is the category list and its fetch lifecycle.
//
// CategoryCollectionState 是分类列表及其获取生命周期。
type CategoryCollectionState struct {
	Items     []catalog.Category `json:"items"`
	Status    RequestStatus      `json:"status"`
	LastError string             `json:"lastError,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
	RequestID string             `json:"requestId,omitempty"`
}

// clone returns a deep copy: neither the Items slice nor any product field
// is shared with the store.
func (s ProductCollectionState) clone() ProductCollectionState {
	if s.Items != nil {
		items := make([]catalog.Product, len(s.Items))
		for i, p := range s.Items {
			items[i] = p.Clone()
		}
		s.Items = items
	}
	if s.Query.MinPrice != nil {
		v := *s.Query.MinPrice
		s.Query.MinPrice = &v
	}
	if s.Query.MaxPrice != nil {
		v := *s.Query.MaxPrice
		s.Query.MaxPrice = &v
	}
	return s
}

func (s CategoryCollectionState) clone() CategoryCollectionState {
	if s.Items != nil {
		s.Items = append([]catalog.Category(nil), s.Items...)
	}
	return s
}

// Event describes one applied transition.
//
// Event 描述一次已应用的状态转换。
type Event struct {
	Collection Collection
	Status     RequestStatus
	RequestID  string
	Seq        uint64
	LastError  string
}
