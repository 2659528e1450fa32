package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"relate-backend/ratelimit"
)

var rateLimitRejections = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relate_ratelimit_rejections_total",
		Help: "Requests rejected by the rate limiter, per route pattern.",
	},
	[]string{"path"},
)

func init() {
	prometheus.MustRegister(rateLimitRejections)
}

// RateLimitMiddleware rejects requests whose token has exhausted its window.
// keyFn derives the limiter token from the request: the client IP for the
// widget surface, a fixed string for shared webhook endpoints. Limiter errors
// other than a denial fail open; losing the limiter must not take the inbox
// down with it.
func RateLimitMiddleware(limiter ratelimit.Limiter, limit int, keyFn func(c *gin.Context) string) gin.HandlerFunc {
	logger := slog.With("middleware", "RateLimit")

	return func(c *gin.Context) {
		token := keyFn(c)

		err := limiter.Allow(c.Request.Context(), limit, token)
		if err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				path := c.FullPath()
				if path == "" {
					path = "unmatched"
				}
				rateLimitRejections.WithLabelValues(path).Inc()
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
				return
			}
			logger.Error("Rate limiter unavailable, allowing request", "error", err)
		}

		c.Next()
	}
}

// ClientIPKey keys the limiter on the caller's IP.
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}

// FixedKey keys the limiter on a constant token, pooling all callers of an
// endpoint into one budget.
func FixedKey(token string) func(c *gin.Context) string {
	return func(c *gin.Context) string {
		return token
	}
}
