package middleware

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"nexora/internal/services"
	"nexora/pkg/utils"
)

// RateLimitMiddleware rejects over-quota sources with 429 before signature
// verification runs; the provider redelivers later. A store failure fails
// open so a cache outage cannot drop webhook deliveries.
func RateLimitMiddleware(store services.RateLimitStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, err := store.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Printf("ratelimit: store error for %s: %v", c.ClientIP(), err)
			c.Next()
			return
		}

		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			utils.RespondError(c, http.StatusTooManyRequests, "Rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
