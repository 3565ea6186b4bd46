package loader

import "context"

type requestIDKey struct{}

// WithRequestID returns a context carrying the identifier of the store request
// a load belongs to, so transports can propagate it.
//
// WithRequestID 返回携带存储请求标识符的上下文，以便传输层传播该标识符。
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request identifier stored in ctx, or "".
//
// RequestIDFrom 返回存储在ctx中的请求标识符，不存在时返回""。
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
