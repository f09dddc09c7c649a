package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// CORSMiddleware handles CORS for the catalog frontend
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		if allowed, credentials := matchOrigin(origin, allowedOrigins); allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			if credentials {
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Max-Age", "3600")
			c.Writer.Header().Add("Vary", "Origin")
		}

		// Handle preflight requests
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isAllowedOrigin checks if the origin is in the allowed list. A trailing "*" matches any suffix.
func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	allowed, _ := matchOrigin(origin, allowedOrigins)
	return allowed
}

// matchOrigin reports whether origin is allowed and whether credentials may be shared with it.
// Origins admitted only by a bare "*" never get credentials.
func matchOrigin(origin string, allowedOrigins []string) (allowed, credentials bool) {
	if origin == "" {
		return false, false
	}
	anyOrigin := false
	for _, entry := range allowedOrigins {
		switch {
		case entry == "*":
			anyOrigin = true
		case strings.HasSuffix(entry, "*"):
			if strings.HasPrefix(origin, strings.TrimSuffix(entry, "*")) {
				return true, true
			}
		case origin == entry:
			return true, true
		}
	}
	return anyOrigin, false
}

// LoggerMiddleware emits one zerolog event per request
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}

		event.Str("component", "http").
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("request")
	}
}

// RecoveryMiddleware recovers from panics with a JSON error body
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().
			Str("component", "http").
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Msg("panic recovered")

		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	})
}

// visitor is the limiter of one client IP
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter hands out one token bucket per client IP and forgets idle clients
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

func newIPRateLimiter(perMinute int) *ipRateLimiter {
	if perMinute <= 0 {
		perMinute = 100
	}
	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idle:     3 * time.Minute,
		now:      time.Now,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		l.evictIdle(now)
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *ipRateLimiter) evictIdle(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, ip)
		}
	}
}

// RateLimitMiddleware allows perMinute requests per client IP, with bursts up to the same amount
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	limiter := newIPRateLimiter(perMinute)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
