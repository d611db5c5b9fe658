package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iliyamo/clinic-queue/internal/config"
)

// NewRateLimiter picks the Redis token bucket when a client is available and
// the in-process limiter otherwise.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if rdb != nil {
		return NewTokenBucket(cfg, rdb, log)
	}
	return NewLocalLimiter(cfg, log)
}

type localEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// localLimiters keeps one limiter per bucket key.  Keys idle for longer
// than ttl are swept lazily.
type localLimiters struct {
	mu        sync.Mutex
	entries   map[string]*localEntry
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
}

func (l *localLimiters) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > l.ttl {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > l.ttl {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.lim
}

// NewLocalLimiter applies the same bucket parameters as NewTokenBucket with
// golang.org/x/time/rate, per process.
func NewLocalLimiter(cfg config.RateLimitConfig, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	log = log.Named("ratelimit")
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}
	store := &localLimiters{
		entries:   make(map[string]*localEntry),
		limit:     rate.Every(interval / time.Duration(max(cfg.RefillTokens, 1))),
		burst:     max(cfg.Capacity, 1),
		ttl:       max(cfg.TTL, time.Minute),
		lastSweep: time.Now(),
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			now := time.Now()
			lim := store.get(key, now)
			r := lim.ReserveN(now, 1)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(store.burst))
			if delay := r.DelayFrom(now); delay > 0 {
				r.CancelAt(now)
				secs := int(math.Ceil(delay.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				if cfg.Debug {
					log.Info("blocked", zap.String("key", key), zap.Duration("retry", delay))
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			h.Set("X-RateLimit-Remaining", strconv.Itoa(int(lim.TokensAt(now))))
			return next(c)
		}
	}
}
