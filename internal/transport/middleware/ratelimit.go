package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/transport"
	"github.com/redis/go-redis/v9"
)

type RateLimiterConfig struct {
	MaxRequests int
	Window      time.Duration
	Prefix      string
}

// RateLimiter is a fixed-window counter per client IP kept in Redis.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimiterConfig
	base   *transport.BaseHandler
	logger *slog.Logger
}

func NewRateLimiter(client *redis.Client, config RateLimiterConfig, logger *slog.Logger) *RateLimiter {
	if config.Prefix == "" {
		config.Prefix = "ratelimit"
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	return &RateLimiter{
		redis:  client,
		config: config,
		base:   transport.NewBaseHandler(logger),
		logger: logger,
	}
}

// Middleware fails open: a Redis error lets the request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		allowed, retryAfter, err := rl.CheckLimit(r.Context(), ip)
		if err != nil {
			rl.logger.Warn("rate limiter unavailable, allowing request", "ip", ip, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			seconds := int(retryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			appErr := internal.NewRateLimitedError("Too many requests. Please try again later.")
			status, body := appErr.ToHTTPResponse()
			rl.base.WriteJSON(w, status, body)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) CheckLimit(ctx context.Context, ip string) (bool, time.Duration, error) {
	key := fmt.Sprintf("%s:%s", rl.config.Prefix, ip)

	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := rl.redis.Expire(ctx, key, rl.config.Window).Err(); err != nil {
			return false, 0, err
		}
	}

	if count > int64(rl.config.MaxRequests) {
		ttl, err := rl.redis.TTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			ttl = rl.config.Window
		}
		return false, ttl, nil
	}
	return true, 0, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
