package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimit is a sliding window limiter keyed by user, or client IP for
// anonymous requests.
type RateLimit struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewRateLimit(limit int, window time.Duration) *RateLimit {
	return &RateLimit{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (rl *RateLimit) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.GetString("user_id")
		if key == "" {
			key = ctx.ClientIP()
		}
		if !rl.allow(key) {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": int(rl.window.Seconds()),
			})
			return
		}
		ctx.Next()
	}
}

func (rl *RateLimit) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	valid := rl.requests[key][:0]
	for _, at := range rl.requests[key] {
		if at.After(cutoff) {
			valid = append(valid, at)
		}
	}
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// Cleanup drops idle keys every minute until stop is closed.
func (rl *RateLimit) Cleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := rl.now().Add(-rl.window)
			for key, times := range rl.requests {
				if len(times) == 0 || !times[len(times)-1].After(cutoff) {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
