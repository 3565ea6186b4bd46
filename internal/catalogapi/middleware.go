package catalogapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Humphrey-He/storefront/internal/metrics"
	sferrors "github.com/Humphrey-He/storefront/pkg/errors"
)

const requestIDKey = "request_id"

// RequestID echoes the caller's X-Request-Id, or assigns one, so client and
// server log lines can be correlated.
//
// RequestID 回显调用方的 X-Request-Id 或分配一个新的，以便关联客户端和服务端日志。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// RequestLogger returns a middleware that logs request information.
//
// RequestLogger 返回记录请求信息的中间件。
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, zap.Error(last.Err))
		}
		logger.Info("request", fields...)
	}
}

// KeyAuth rejects requests whose "key" header does not match secret and
// records ErrUnauthorized on the context. An empty secret disables the check.
//
// KeyAuth 拒绝"key"头与secret不匹配的请求，并在上下文中记录 ErrUnauthorized。
// secret为空时禁用检查。
func KeyAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader("key")), []byte(secret)) != 1 {
			_ = c.Error(sferrors.ErrUnauthorized)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response{Message: "Unauthorized"})
			return
		}
		c.Next()
	}
}

// RouteMetrics counts each request against collection and records its
// latency as a success (status < 400) or failure.
//
// RouteMetrics 将每个请求计入collection，并按状态码（< 400为成功）记录延迟。
func RouteMetrics(m *metrics.Metrics, collection string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.RecordRequest(collection)

		c.Next()

		if c.Writer.Status() < http.StatusBadRequest {
			m.RecordSuccess(collection, time.Since(start))
		} else {
			m.RecordFailure(collection, time.Since(start))
		}
	}
}
