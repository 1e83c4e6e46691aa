package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gurilao-dev/exmonitor/internal/models"
	"github.com/Gurilao-dev/exmonitor/internal/services"
)

// ClientIP derives the rate-limit identity: first forwarded-for hop, then
// the real-ip header, then the socket address. This trusts proxy headers, so
// it is only meaningful behind a trusted reverse proxy.
func ClientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := c.GetHeader("X-Real-IP"); real != "" {
		return real
	}
	return c.ClientIP()
}

// RateLimit gates a route on the abuse guard. The block list is consulted
// before the window check; a blocked identity is rejected without touching
// its window. Rejections are recorded on the context for ErrorHandler to
// render (403 for blocks, 429 with the retry hint for exceeded limits); the
// limiter itself only sets the rate headers. Exceeding a class with a block
// duration schedules an asynchronous block so the response is never delayed
// by the store write.
func RateLimit(guard *services.AbuseGuard, class services.LimitClass) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ClientIP(c)

		if guard.IsBlocked(c.Request.Context(), ip) {
			c.Error(&models.IPBlockedError{Reason: "suspicious activity"})
			c.Abort()
			return
		}

		result := guard.Check(ip, class)
		if !result.Allowed {
			limit := services.Limits[class]
			if limit.BlockDuration > 0 {
				guard.BlockAsync(ip, fmt.Sprintf("Exceeded %s rate limit", class), limit.BlockDuration)
			}

			c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(result.RetryAfter, 10))
			c.Header("Retry-After", strconv.FormatInt(result.RetryAfter, 10))
			c.Error(&models.RateLimitError{RetryAfter: result.RetryAfter})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Next()
	}
}
