// Package errors provides the failure taxonomy of the storefront data layer.
// It defines sentinel errors for each observable failure kind, a typed
// wrapper carrying the server message, and helpers for error checking.
//
// Package errors 提供店面数据层的失败分类。
// 它为每种可观察的失败类型定义了哨兵错误、携带服务端消息的类型化包装器，
// 以及用于错误检查的辅助函数。
package errors

import (
	"errors"
	"fmt"
)

// Fallback messages recorded when a failure carries no message of its own.
//
// 当失败本身不携带消息时记录的后备消息。
const (
	DefaultProductMessage  = "Something went wrong"
	DefaultCategoryMessage = "Failed to fetch categories"
)

// Standard errors that can be observed at the store boundary.
//
// 在存储边界可以观察到的标准错误。
var (
	// ErrProductFetchFailed marks any failure of a product listing fetch.
	// ErrProductFetchFailed 标记商品列表获取的任何失败。
	ErrProductFetchFailed = errors.New("storefront: product fetch failed")

	// ErrCategoryFetchFailed marks any failure of a category fetch.
	// ErrCategoryFetchFailed 标记分类获取的任何失败。
	ErrCategoryFetchFailed = errors.New("storefront: category fetch failed")

	// ErrInvalidQuery is returned when a product query fails validation.
	// 当商品查询未通过验证时返回ErrInvalidQuery。
	ErrInvalidQuery = errors.New("storefront: invalid query")

	// ErrStoreClosed is returned when a request is issued on a closed store.
	// 当在已关闭的存储上发起请求时返回ErrStoreClosed。
	ErrStoreClosed = errors.New("storefront: store is closed")

	// ErrUnauthorized is returned by the catalog API when the shared key is wrong.
	// 当共享密钥错误时，目录API返回ErrUnauthorized。
	ErrUnauthorized = errors.New("storefront: unauthorized")
)

// FetchError describes one failed fetch. Kind is one of the sentinel errors
// above; Message is the human readable text recorded in state.
//
// FetchError 描述一次失败的获取。Kind 是上面的哨兵错误之一；
// Message 是记录在状态中的可读文本。
type FetchError struct {
	Kind    error  // Failure kind / 失败类型
	Status  int    // HTTP status, 0 for transport failures / HTTP状态码，传输失败时为0
	Message string // Message from the server body, may be empty / 服务端消息，可能为空
	Err     error  // The underlying error / 底层错误
}

// Error returns the error message.
//
// Error 返回错误消息。
func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error.
//
// Unwrap 返回底层错误。
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the failure kind so errors.Is(err, ErrProductFetchFailed) works.
//
// Is 匹配失败类型，使 errors.Is(err, ErrProductFetchFailed) 生效。
func (e *FetchError) Is(target error) bool {
	return e.Kind == target
}

// NewFetchError creates a FetchError.
//
// NewFetchError 创建一个FetchError。
//
// Parameters:
//   - kind: ErrProductFetchFailed or ErrCategoryFetchFailed
//   - status: HTTP status code, or 0
//   - message: Message extracted from the response body
//   - err: The underlying error
//
// Returns:
//   - *FetchError: A new fetch error instance
func NewFetchError(kind error, status int, message string, err error) *FetchError {
	return &FetchError{Kind: kind, Status: status, Message: message, Err: err}
}

// MessageOf returns the message to record for err: the server message of a
// FetchError when present, otherwise fallback.
//
// MessageOf 返回要为err记录的消息：存在时为FetchError的服务端消息，否则为fallback。
func MessageOf(err error, fallback string) string {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return fallback
}

// IsProductFetchFailed returns true if the error is a product fetch failure.
//
// IsProductFetchFailed 如果错误是商品获取失败，则返回true。
func IsProductFetchFailed(err error) bool {
	return errors.Is(err, ErrProductFetchFailed)
}

// IsCategoryFetchFailed returns true if the error is a category fetch failure.
//
// IsCategoryFetchFailed 如果错误是分类获取失败，则返回true。
func IsCategoryFetchFailed(err error) bool {
	return errors.Is(err, ErrCategoryFetchFailed)
}

// IsInvalidQuery returns true if the error is or wraps ErrInvalidQuery.
//
// IsInvalidQuery 如果错误是或包装了ErrInvalidQuery，则返回true。
func IsInvalidQuery(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

// IsStoreClosed returns true if the error is or wraps ErrStoreClosed.
//
// IsStoreClosed 如果错误是或包装了ErrStoreClosed，则返回true。
func IsStoreClosed(err error) bool {
	return errors.Is(err, ErrStoreClosed)
}

// IsUnauthorized returns true if the error is or wraps ErrUnauthorized.
//
// IsUnauthorized 如果错误是或包装了ErrUnauthorized，则返回true。
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
