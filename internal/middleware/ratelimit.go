package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fitpass_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with the given burst per client.
// A non-positive rate disables limiting.
func NewRateLimiter(requestsPerSecond, burst int) *RateLimiter {
	if burst <= 0 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = rl.now()
	return cl.limiter.AllowN(cl.lastSeen, 1)
}

// clientKey is the user id when authenticated, otherwise the client IP.
func clientKey(c *gin.Context) string {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(int64); ok && id > 0 {
			return "user:" + strconv.FormatInt(id, 10)
		}
	}
	return "ip:" + c.ClientIP()
}

// Handler returns the gin middleware. Place it after AuthMiddleware to limit per user.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}
		key := clientKey(c)
		if !rl.allow(key) {
			utils.LogWarn(nil, "Rate limit exceeded", map[string]interface{}{"key": key, "path": c.FullPath()})
			c.Header("Retry-After", "1")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusTooManyRequests, utils.ErrCodeRateLimited, "Too many requests", "").
				WithSwedish("För många förfrågningar. Försök igen om en stund."))
			return
		}
		c.Next()
	}
}

// Cleanup drops clients idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	removed := 0
	for key, cl := range rl.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(interval)
			}
		}
	}()
}
