package api

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/adaptbtc/adaptbtc-server/config"
	"github.com/adaptbtc/adaptbtc-server/internal/monitor"
	"github.com/adaptbtc/adaptbtc-server/pkg/concurrent"
	"github.com/adaptbtc/adaptbtc-server/pkg/goplus"
)

// requestLogger 访问日志与请求计数
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		monitor.IncHTTPRequest(route, strconv.Itoa(status))

		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Debug()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("http request")
	}
}

// recovery panic 时返回 500，不带堆栈
func recovery(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		log.Error().Interface("panic", err).Str("path", c.Request.URL.Path).Msg("handler panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64 // unix nano
}

// RateLimiter 按客户端 IP 限流
type RateLimiter struct {
	limiters concurrent.Map[string, *limiterEntry]
	cfg      config.RateLimit
	now      func() time.Time
	done     chan struct{}
	log      zerolog.Logger
}

func NewRateLimiter(cfg config.RateLimit, log zerolog.Logger) *RateLimiter {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	return &RateLimiter{
		cfg:  cfg,
		now:  time.Now,
		done: make(chan struct{}),
		log:  log,
	}
}

// Start 定期清理长时间不活跃的客户端
func (rl *RateLimiter) Start() {
	goplus.Go(func() {
		ticker := time.NewTicker(rl.cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := rl.cleanup(); removed > 0 {
					rl.log.Debug().Int("removed", removed).Int64("active", rl.limiters.Len()).Msg("rate limiters cleaned")
				}
			case <-rl.done:
				return
			}
		}
	})
}

func (rl *RateLimiter) Stop() {
	close(rl.done)
}

func (rl *RateLimiter) cleanup() int {
	cutoff := rl.now().Add(-rl.cfg.IdleTimeout).UnixNano()
	return rl.limiters.DeleteIf(func(_ string, e *limiterEntry) bool {
		return e.lastAccess.Load() < cutoff
	})
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	now := rl.now().UnixNano()
	if e, ok := rl.limiters.Load(key); ok {
		e.lastAccess.Store(now)
		return e.limiter
	}

	e := &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSec), rl.cfg.Burst)}
	e.lastAccess.Store(now)
	actual, _ := rl.limiters.LoadOrStore(key, e)
	return actual.limiter
}

// Allow 客户端是否还有配额
func (rl *RateLimiter) Allow(key string) bool {
	return rl.get(key).Allow()
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.Allow(ip) {
			rl.log.Warn().Str("ip", ip).Str("path", c.Request.URL.Path).Msg("rate limit exceeded")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			return
		}
		c.Next()
	}
}
