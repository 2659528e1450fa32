package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"relate-backend/ratelimit"
)

func newLimitedRouter(limiter ratelimit.Limiter, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/x", RateLimitMiddleware(limiter, limit, FixedKey("t")), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	return r
}

func hit(r *gin.Engine) int {
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitMiddlewareRejectsOverLimit(t *testing.T) {
	r := newLimitedRouter(ratelimit.NewMemory(time.Minute, 10), 2)

	if code := hit(r); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := hit(r); code != http.StatusOK {
		t.Fatalf("second request: expected 200, got %d", code)
	}
	before := testutil.ToFloat64(rateLimitRejections.WithLabelValues("/x"))
	if code := hit(r); code != http.StatusTooManyRequests {
		t.Fatalf("third request: expected 429, got %d", code)
	}
	if after := testutil.ToFloat64(rateLimitRejections.WithLabelValues("/x")); after != before+1 {
		t.Errorf("expected rejection counter to move from %v to %v, got %v", before, before+1, after)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, int, string) error {
	return errors.New("redis down")
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	r := newLimitedRouter(brokenLimiter{}, 1)

	// A broken limiter backend must not take the endpoint down.
	for i := 0; i < 3; i++ {
		if code := hit(r); code != http.StatusOK {
			t.Fatalf("request %d: expected fail-open 200, got %d", i+1, code)
		}
	}
}
