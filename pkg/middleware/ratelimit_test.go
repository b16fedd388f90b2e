package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"nexora/internal/services"
)

type stubRateLimitStore struct {
	allow func(ctx context.Context, key string) (bool, int, error)
}

func (s *stubRateLimitStore) Allow(ctx context.Context, key string) (bool, int, error) {
	return s.allow(ctx, key)
}

func rateLimitedRouter(store services.RateLimitStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", RateLimitMiddleware(store), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doWebhookRequest(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.RemoteAddr = "203.0.113.7:52314"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowsWithinQuota(t *testing.T) {
	r := rateLimitedRouter(&stubRateLimitStore{
		allow: func(_ context.Context, key string) (bool, int, error) {
			assert.Equal(t, "203.0.113.7", key, "limits are keyed by source IP")
			return true, 7, nil
		},
	})

	w := doWebhookRequest(r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitRejectsOverQuota(t *testing.T) {
	r := rateLimitedRouter(&stubRateLimitStore{
		allow: func(context.Context, string) (bool, int, error) {
			return false, 0, nil
		},
	})

	w := doWebhookRequest(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	// A cache outage must not drop webhook deliveries.
	r := rateLimitedRouter(&stubRateLimitStore{
		allow: func(context.Context, string) (bool, int, error) {
			return false, 0, errors.New("redis down")
		},
	})

	w := doWebhookRequest(r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitEndToEndWithMemoryStore(t *testing.T) {
	r := rateLimitedRouter(services.NewMemoryRateLimit(2, time.Minute))

	assert.Equal(t, http.StatusOK, doWebhookRequest(r).Code)
	assert.Equal(t, http.StatusOK, doWebhookRequest(r).Code)
	assert.Equal(t, http.StatusTooManyRequests, doWebhookRequest(r).Code)
}
