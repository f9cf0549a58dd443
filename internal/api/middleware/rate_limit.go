package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"recipe-aggregator/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter 單一呼叫端的令牌桶
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
	now      func() time.Time
}

// NewRateLimiter 創建新的限流器
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   float64(requests),
		capacity: float64(requests),
		rate:     float64(requests) / window.Seconds(),
		lastTime: time.Now(),
		now:      time.Now,
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(rl.lastTime).Seconds()
	rl.lastTime = now

	rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.rate)
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// clientLimiters 依用戶端 IP 分開計算
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*RateLimiter
	seen     map[string]time.Time
	requests int
	window   time.Duration
}

func (cl *clientLimiters) get(key string) *RateLimiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := time.Now()
	// 順便清掉閒置超過十個視窗的用戶端
	if len(cl.limiters) > 1024 {
		for k, t := range cl.seen {
			if now.Sub(t) > 10*cl.window {
				delete(cl.limiters, k)
				delete(cl.seen, k)
			}
		}
	}

	l, ok := cl.limiters[key]
	if !ok {
		l = NewRateLimiter(cl.requests, cl.window)
		cl.limiters[key] = l
	}
	cl.seen[key] = now
	return l
}

// RateLimit 限流中間件
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	clients := &clientLimiters{
		limiters: make(map[string]*RateLimiter),
		seen:     make(map[string]time.Time),
		requests: requests,
		window:   window,
	}

	return func(c *gin.Context) {
		if !clients.get(c.ClientIP()).Allow() {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Code:    common.ErrCodeTooManyRequests,
				Message: common.ErrTooManyRequests.Message,
				Details: gin.H{"retry_after": window.Seconds()},
			})
			return
		}

		c.Next()
	}
}
