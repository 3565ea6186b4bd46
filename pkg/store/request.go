package store

import (
	"context"
	"sync"

	"github.com/Humphrey-He/storefront/pkg/catalog"
)

// Request is the handle of one issued fetch. Callers never block on issuing a
// request; they may wait for its settlement through Done or Wait.
//
// Request 是一次已发起获取的句柄。调用方发起请求时不会阻塞，
// 可以通过 Done 或 Wait 等待其结算。
type Request struct {
	// ID correlates the request with client and server logs.
	ID string
	// Seq is the per collection sequence number, starting at 1.
	Seq uint64
	// Collection is the collection the request targets.
	Collection Collection
	// Query is the normalised query of a product request.
	Query catalog.ProductQuery

	done      chan struct{}
	once      sync.Once
	err       error
	discarded bool
}

func newRequest(id string, seq uint64, c Collection) *Request {
	return &Request{
		ID:         id,
		Seq:        seq,
		Collection: c,
		done:       make(chan struct{}),
	}
}

// settle records the outcome and closes Done. Only the first call has effect.
func (r *Request) settle(err error, discarded bool) {
	r.once.Do(func() {
		r.err = err
		r.discarded = discarded
		close(r.done)
	})
}

// Done returns a channel closed once the request has settled.
//
// Done 返回在请求结算后关闭的通道。
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request settles or ctx is done. It returns ctx's
// error in the latter case and nil otherwise; the outcome of the fetch itself
// is recorded in the store state and available through Err.
//
// Wait 阻塞直到请求结算或 ctx 结束。后者返回 ctx 的错误，否则返回 nil；
// 获取本身的结果记录在存储状态中，并可通过 Err 获取。
func (r *Request) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the failure of a settled request, nil for a success or while
// the request is still in flight.
func (r *Request) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Discarded reports whether the settlement was dropped as stale.
func (r *Request) Discarded() bool {
	select {
	case <-r.done:
		return r.discarded
	default:
		return false
	}
}
