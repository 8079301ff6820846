// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"

	"github.com/cardswap/cardswap-backend/internal/i18n"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

// maxTrackedClients bounds the limiter table; the least recently seen client
// is evicted and starts over with a full bucket.
const maxTrackedClients = 10000

// RateLimiter hands out one token bucket per client key.
type RateLimiter struct {
	mtx      sync.Mutex
	limiters *lru.Cache
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(r rate.Limit, b int, size int) *RateLimiter {
	if size <= 0 {
		size = maxTrackedClients
	}
	cache, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return &RateLimiter{limiters: cache, rate: r, burst: b}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	if v, ok := rl.limiters.Get(key); ok {
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters.Add(key, l)
	return l
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		lang := utils.GetLangFromContext(c)
		retryAfter := 1
		if rl.rate > 0 && float64(rl.rate) < 1 {
			retryAfter = int(1/float64(rl.rate)) + 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		utils.ErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED", i18n.T(lang, i18n.KeyRateLimited), nil)
		c.Abort()
	}
}

// RateLimit limits each client IP to rps requests per second with the given burst.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return NewRateLimiter(rate.Limit(rps), burst, 0).Middleware()
}
