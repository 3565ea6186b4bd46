package store

import (
	"github.com/Humphrey-He/storefront/internal/utils"
	"github.com/Humphrey-He/storefront/pkg/catalog"
	sferrors "github.com/Humphrey-He/storefront/pkg/errors"
)

type actionKind int

const (
	actionPending actionKind = iota
	actionSucceeded
	actionFailed
)

type productAction struct {
	kind actionKind
	req  *Request
	page catalog.ProductPage
	err  error
}

type categoryAction struct {
	kind  actionKind
	req   *Request
	items []catalog.Category
	err   error
}

// stale reports whether a settlement of seq must be dropped. Callers hold s.mu.
func (s *Store) stale(seq uint64, issued *utils.Sequence) bool {
	return s.opts.stalePolicy == DiscardStale && !issued.IsLatest(seq)
}

// reduceProducts is the only place the product collection changes.
// Callers hold s.mu. It returns false when the settlement was discarded.
func (s *Store) reduceProducts(a productAction) (Event, bool) {
	st := &s.productState
	switch a.kind {
	case actionPending:
		st.Status = StatusLoading
		st.LastError = ""
	case actionSucceeded:
		if s.stale(a.req.Seq, &s.productSeq) {
			return Event{}, false
		}
		items := a.page.Products
		if items == nil {
			items = []catalog.Product{}
		}
		st.Items = items
		st.TotalCount = a.page.TotalProducts
		st.Status = StatusSucceeded
		st.LastError = ""
		st.Query = a.req.Query
		st.UpdatedAt = s.opts.now()
		st.RequestID = a.req.ID
	case actionFailed:
		if s.stale(a.req.Seq, &s.productSeq) {
			return Event{}, false
		}
		st.Status = StatusFailed
		st.LastError = sferrors.MessageOf(a.err, sferrors.DefaultProductMessage)
		st.UpdatedAt = s.opts.now()
		st.RequestID = a.req.ID
	}

	return Event{
		Collection: CollectionProducts,
		Status:     st.Status,
		RequestID:  a.req.ID,
		Seq:        a.req.Seq,
		LastError:  st.LastError,
	}, true
}

// reduceCategories is the only place the category collection changes.
// Callers hold s.mu.
func (s *Store) reduceCategories(a categoryAction) (Event, bool) {
	st := &s.categoryState
	switch a.kind {
	case actionPending:
		st.Status = StatusLoading
		st.LastError = ""
	case actionSucceeded:
		if s.stale(a.req.Seq, &s.categorySeq) {
			return Event{}, false
		}
		items := a.items
		if items == nil {
			items = []catalog.Category{}
		}
		st.Items = items
		st.Status = StatusSucceeded
		st.LastError = ""
		st.UpdatedAt = s.opts.now()
		st.RequestID = a.req.ID
	case actionFailed:
		if s.stale(a.req.Seq, &s.categorySeq) {
			return Event{}, false
		}
		st.Status = StatusFailed
		st.LastError = sferrors.MessageOf(a.err, sferrors.DefaultCategoryMessage)
		st.UpdatedAt = s.opts.now()
		st.RequestID = a.req.ID
	}

	return Event{
		Collection: CollectionCategories,
		Status:     st.Status,
		RequestID:  a.req.ID,
		Seq:        a.req.Seq,
		LastError:  st.LastError,
	}, true
}
