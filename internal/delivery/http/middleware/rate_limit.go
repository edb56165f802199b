package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"go-brokerage-backend/internal/delivery/http/response"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Key prefix for Redis
	KeyPrefix string
	// Whether to fail closed (reject) when Redis is unavailable
	FailClosed bool
}

// DefaultRateLimitConfig returns sensible defaults for API rate limiting
func DefaultRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:      limit,
		Window:     window,
		KeyPrefix:  "rl:ip:",
		FailClosed: false, // Fail open by default for availability
	}
}

// LoginRateLimitConfig returns strict config for the login endpoint
func LoginRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:      limit,
		Window:     window,
		KeyPrefix:  "rl:login:",
		FailClosed: true,
	}
}

// Lua script for atomic increment with TTL on first set.
// Returns: [current_count, ttl_remaining]
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

// rateLimitEntry tracks request count for a key (in-memory fallback)
type rateLimitEntry struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

type memoryLimiter struct {
	entries sync.Map
	once    sync.Once
}

func (m *memoryLimiter) take(key string, cfg RateLimitConfig) bool {
	m.once.Do(m.startCleanup)

	now := time.Now()
	val, _ := m.entries.LoadOrStore(key, &rateLimitEntry{resetAt: now.Add(cfg.Window)})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if now.After(entry.resetAt) {
		entry.count = 0
		entry.resetAt = now.Add(cfg.Window)
	}
	entry.count++
	return entry.count <= cfg.Limit
}

func (m *memoryLimiter) startCleanup() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		for range ticker.C {
			now := time.Now()
			m.entries.Range(func(key, value interface{}) bool {
				entry := value.(*rateLimitEntry)
				entry.mu.Lock()
				if now.After(entry.resetAt) {
					m.entries.Delete(key)
				}
				entry.mu.Unlock()
				return true
			})
		}
	}()
}

// RateLimit enforces a fixed-window limit per client IP. With a Redis client
// the window is shared across instances; without one (nil client or Redis
// down) it falls back to per-process counters, honoring FailClosed.
func RateLimit(rdb *goredis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	fallback := &memoryLimiter{}

	return func(c *gin.Context) {
		key := cfg.KeyPrefix + c.ClientIP()

		var allowed bool
		if rdb != nil {
			result, err := rdb.Eval(c.Request.Context(), rateLimitLuaScript,
				[]string{key}, int(cfg.Window.Seconds())).Result()
			if err != nil {
				if cfg.FailClosed {
					response.Error(c, http.StatusServiceUnavailable, "Rate limiter unavailable", nil)
					c.Abort()
					return
				}
				allowed = fallback.take(key, cfg)
			} else {
				values, _ := result.([]interface{})
				var count int64
				if len(values) > 0 {
					count, _ = values[0].(int64)
				}
				allowed = count <= int64(cfg.Limit)
			}
		} else {
			allowed = fallback.take(key, cfg)
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, "Too many requests. Please slow down.", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
