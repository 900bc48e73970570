package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"kadrisk/pkg/metrics"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type MiddlewareConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

// PerClient limits inbound check requests per client IP. Every check fans out
// into many requests to the court site, so inbound traffic is throttled hard.
type PerClient struct {
	cfg      MiddlewareConfig
	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

func NewPerClient(cfg MiddlewareConfig) *PerClient {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 10 * time.Minute
	}
	return &PerClient{cfg: cfg, limiters: make(map[string]*clientLimiter)}
}

// RunCleanup drops idle limiters until ctx is done.
func (p *PerClient) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.mu.Lock()
			for ip, l := range p.limiters {
				if now.Sub(l.lastSeen) > p.cfg.MaxAge {
					delete(p.limiters, ip)
				}
			}
			p.mu.Unlock()
		}
	}
}

func (p *PerClient) allow(ip string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[ip]
	if !ok {
		l = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(p.cfg.RPS), p.cfg.Burst)}
		p.limiters[ip] = l
	}
	l.lastSeen = time.Now()
	return l.limiter.Allow()
}

func (p *PerClient) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		c.Header("X-RateLimit-Limit", strconv.FormatFloat(p.cfg.RPS, 'f', -1, 64))

		if !p.allow(clientIP) {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
