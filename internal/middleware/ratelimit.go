package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/sumo-flow-backend/pkg/response"
)

// RateLimiter bounds how often one client may trigger pipeline runs
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // Maximum requests per window
	window   time.Duration // Time window
	now      func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow checks if a request from the given client is allowed. Expired
// entries of every client are pruned on the way.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, times := range rl.requests {
		valid := times[:0]
		for _, t := range times {
			if now.Sub(t) < rl.window {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}

	if len(rl.requests[client]) >= rl.limit {
		return false
	}
	rl.requests[client] = append(rl.requests[client], now)
	return true
}

// RateLimit middleware limits requests per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RunGuard admits one pipeline run at a time
type RunGuard struct {
	mu      sync.Mutex
	busy    bool
	started time.Time
}

// NewRunGuard creates an idle guard
func NewRunGuard() *RunGuard {
	return &RunGuard{}
}

// TryAcquire marks the guard busy; it fails while a run holds it
func (g *RunGuard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	g.busy, g.started = true, time.Now()
	return true
}

// Release frees the guard
func (g *RunGuard) Release() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}

// Busy reports whether a run holds the guard
func (g *RunGuard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

// Since returns how long the current run has been active, zero when idle
func (g *RunGuard) Since() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.busy {
		return 0
	}
	return time.Since(g.started)
}

// RejectWhileBusy answers 409 without reaching the handler while a run is active
func RejectWhileBusy(g *RunGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.Busy() {
			response.Conflict(c, "a pipeline run is already in progress")
			c.Abort()
			return
		}
		c.Next()
	}
}
