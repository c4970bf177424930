package middleware

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Defaults when RATE_LIMIT_RPS / RATE_LIMIT_BURST are unset. Stale
// client buckets are dropped after staleAfter of inactivity.
const (
	defaultRatePerSec = 1
	defaultBurst      = 5
	staleAfter        = 3 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	clients = make(map[string]*clientLimiter)
	mu      sync.Mutex
)

func limitFromEnv() (rate.Limit, int) {
	rps := float64(defaultRatePerSec)
	if v, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64); err == nil && v > 0 {
		rps = v
	}
	burst := defaultBurst
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST")); err == nil && v > 0 {
		burst = v
	}
	return rate.Limit(rps), burst
}

func cleanupClients() {
	for {
		time.Sleep(time.Minute)
		mu.Lock()
		for ip, c := range clients {
			if time.Since(c.lastSeen) > staleAfter {
				delete(clients, ip)
			}
		}
		mu.Unlock()
	}
}

func getLimiter(ip string, limit rate.Limit, burst int) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	cl, exists := clients[ip]
	if !exists {
		limiter := rate.NewLimiter(limit, burst)
		clients[ip] = &clientLimiter{limiter, time.Now()}
		return limiter
	}

	cl.lastSeen = time.Now()
	return cl.limiter
}

// RateLimitMiddleware throttles each client IP with a token bucket.
// Every endpoint sits behind it, including the secure-link routes, so
// token guessing is expensive.
func RateLimitMiddleware() gin.HandlerFunc {
	limit, burst := limitFromEnv()
	go cleanupClients()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := getLimiter(ip, limit, burst)

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}

		c.Next()
	}
}
