package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentflow/leasesign/pkg/redis"
	"github.com/rentflow/leasesign/pkg/response"
)

// RateLimitConfig holds rate limiting configuration for public signing endpoints
type RateLimitConfig struct {
	// RequestsPerMinute per client IP (0 = unlimited)
	RequestsPerMinute int
	// BurstSize (token bucket capacity) for the local limiter
	BurstSize int
	// UseRedis enables distributed fixed-window limiting
	UseRedis bool
	// RedisClient is required if UseRedis is true
	RedisClient *redis.Client
	// KeyPrefix for Redis keys
	KeyPrefix string
	// CleanupInterval for the local limiter
	CleanupInterval time.Duration
	// EntryTTL for local limiter entries
	EntryTTL time.Duration
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         20,
		UseRedis:          false,
		KeyPrefix:         "ratelimit:sign:",
		CleanupInterval:   time.Minute,
		EntryTTL:          5 * time.Minute,
	}
}

// rateLimitEntry tracks token bucket state for an IP
type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// LocalRateLimiter implements in-memory token bucket rate limiting
type LocalRateLimiter struct {
	config  RateLimitConfig
	entries sync.Map
	stop    chan struct{}

	totalAllowed  uint64
	totalRejected uint64
}

// NewLocalRateLimiter creates a new local rate limiter
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	rl := &LocalRateLimiter{
		config: config,
		stop:   make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a request should be allowed
func (rl *LocalRateLimiter) Allow(key string) bool {
	now := time.Now()

	entry, _ := rl.entries.LoadOrStore(key, &rateLimitEntry{
		tokens:     float64(rl.config.BurstSize),
		lastUpdate: now,
	})
	e := entry.(*rateLimitEntry)

	e.mu.Lock()
	defer e.mu.Unlock()

	ratePerSecond := float64(rl.config.RequestsPerMinute) / 60.0
	elapsed := now.Sub(e.lastUpdate).Seconds()
	e.tokens = min(float64(rl.config.BurstSize), e.tokens+elapsed*ratePerSecond)
	e.lastUpdate = now

	if e.tokens >= 1 {
		e.tokens--
		atomic.AddUint64(&rl.totalAllowed, 1)
		return true
	}

	atomic.AddUint64(&rl.totalRejected, 1)
	return false
}

// GetStats returns rate limiter statistics
func (rl *LocalRateLimiter) GetStats() (allowed, rejected uint64) {
	return atomic.LoadUint64(&rl.totalAllowed), atomic.LoadUint64(&rl.totalRejected)
}

// Stop stops the cleanup goroutine
func (rl *LocalRateLimiter) Stop() {
	close(rl.stop)
}

// cleanup periodically removes stale entries
func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.config.EntryTTL)
			rl.entries.Range(func(key, value interface{}) bool {
				e := value.(*rateLimitEntry)
				e.mu.Lock()
				stale := e.lastUpdate.Before(cutoff)
				e.mu.Unlock()
				if stale {
					rl.entries.Delete(key)
				}
				return true
			})
		case <-rl.stop:
			return
		}
	}
}

// RateLimitMiddleware limits requests per client IP. When Redis is configured
// it uses a fixed window shared across instances, otherwise a local token
// bucket.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var local *LocalRateLimiter
	if !config.UseRedis || config.RedisClient == nil {
		local = NewLocalRateLimiter(config)
	}

	return func(c *gin.Context) {
		ip := ClientIP(c)

		allowed := true
		if local != nil {
			allowed = local.Allow(ip)
		} else {
			key := fmt.Sprintf("%s%s:%d", config.KeyPrefix, ip, time.Now().Unix()/60)
			rdb := config.RedisClient.RDB()
			count, err := rdb.Incr(c.Request.Context(), key).Result()
			if err == nil {
				if count == 1 {
					rdb.Expire(c.Request.Context(), key, time.Minute)
				}
				allowed = count <= int64(config.RequestsPerMinute)
			}
			// Redis failure falls open; signing links are still token-gated
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.TooManyRequests(""))
			return
		}

		c.Next()
	}
}

// ClientIP extracts the client IP, preferring proxy headers
func ClientIP(c *gin.Context) string {
	xff := c.GetHeader("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := c.GetHeader("X-Real-IP")
	if xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
