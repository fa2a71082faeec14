package middleware

import (
	"execjudge/internal/common/ratelimit"
	"execjudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware rejects requests once the client IP exhausts its allowance
// for the given route. A nil limiter disables the check.
func RateLimitMiddleware(limiter ratelimit.Limiter, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := route + ":" + c.ClientIP()
		if err := limiter.Allow(c.Request.Context(), key); err != nil {
			response.AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
