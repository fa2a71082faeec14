package middleware

import (
	"context"
	"strings"

	"execjudge/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	traceIDHeader   = "X-Trace-Id"
	requestIDHeader = "X-Request-Id"

	traceIDContextKey   = "trace_id"
	requestIDContextKey = "request_id"
	clientIPContextKey  = "client_ip"

	maxIncomingIDLen = 128
)

// TraceContextMiddleware makes sure every request carries trace and request ids,
// both in the gin context and in the request context used for logging.
func TraceContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := incomingID(c.GetHeader(traceIDHeader))
		requestID := incomingID(c.GetHeader(requestIDHeader))
		clientIP := c.ClientIP()

		c.Set(traceIDContextKey, traceID)
		c.Set(requestIDContextKey, requestID)
		c.Set(clientIPContextKey, clientIP)

		ctx := context.WithValue(c.Request.Context(), contextkey.TraceID, traceID)
		ctx = context.WithValue(ctx, contextkey.RequestID, requestID)
		ctx = context.WithValue(ctx, contextkey.ClientIP, clientIP)
		c.Request = c.Request.WithContext(ctx)

		c.Writer.Header().Set(traceIDHeader, traceID)
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}

// incomingID keeps a caller supplied id when it looks sane, otherwise mints one.
func incomingID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxIncomingIDLen {
		return uuid.NewString()
	}
	return id
}
