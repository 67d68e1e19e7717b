package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const requestIDKey = "requestId"

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// requestLogger tags every request with a uuid and logs the outcome.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		start := time.Now()

		c.Next()

		log.Info("request",
			zap.String("requestId", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client", clientKey(c)))
	}
}

// clientKey identifies the caller for rate limiting and logs: the cookie
// username when present, the peer address otherwise.
func clientKey(c *gin.Context) string {
	if username, err := c.Cookie("username"); err == nil && username != "" {
		return username
	}
	return c.ClientIP()
}

// rateLimiter keeps one token bucket per client identity.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	return &rateLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

// rateLimit guards the game routes. Over-budget callers get a 429 and a
// retry hint; the retry policy itself is the client's business.
func rateLimit(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.allow(clientKey(c)) {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code":    "rate-limited",
			"message": "too many requests",
		})
	}
}
