package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/rivervm/internal/metrics"
)

// Counter increments a windowed counter and returns its new value.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisCounter is a Counter backed by Redis INCR and EXPIRE.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter connects to redisURL.
func NewRedisCounter(ctx context.Context, redisURL string) (*RedisCounter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCounter{client: client}, nil
}

// Incr increments key and refreshes its TTL in one round trip.
func (c *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Ping checks the Redis connection.
func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}

// RateLimiter implements fixed window rate limiting per client IP.
type RateLimiter struct {
	counter   Counter
	requests  int
	window    time.Duration
	whitelist map[string]bool
	logger    *slog.Logger
	now       func() time.Time
}

// NewRateLimiter allows requests per window for each client IP. Whitelisted
// IPs are never limited.
func NewRateLimiter(counter Counter, requests int, window time.Duration, whitelist []string, logger *slog.Logger) *RateLimiter {
	if window < time.Second {
		window = time.Second
	}
	rl := &RateLimiter{
		counter:   counter,
		requests:  requests,
		window:    window,
		whitelist: make(map[string]bool, len(whitelist)),
		logger:    logger,
		now:       time.Now,
	}
	for _, ip := range whitelist {
		rl.whitelist[ip] = true
	}
	if len(whitelist) > 0 {
		logger.Info("rate limit whitelist configured", "ips", len(rl.whitelist))
	}
	return rl
}

// Middleware returns the rate limiting middleware. Counter failures let the
// request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.requests <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if rl.whitelist[ip] {
			next.ServeHTTP(w, r)
			return
		}

		now := rl.now()
		bucket := now.Unix() / int64(rl.window.Seconds())
		resetAt := time.Unix((bucket+1)*int64(rl.window.Seconds()), 0)
		key := fmt.Sprintf("ratelimit:ip:%s:%d", ip, bucket)

		count, err := rl.counter.Incr(r.Context(), key, rl.window*2)
		if err != nil {
			rl.logger.Warn("rate limit counter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.requests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > int64(rl.requests) {
			metrics.RateLimitHits.WithLabelValues(normalizePath(r.URL.Path)).Inc()
			rl.logger.Warn("rate limit exceeded",
				"ip", ip,
				"endpoint", r.URL.Path,
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(resetAt.Sub(now).Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of RemoteAddr. chi's RealIP middleware has
// already applied X-Forwarded-For and X-Real-IP.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return ip
}
