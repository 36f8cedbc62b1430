// Package ratelimit throttles the unauthenticated public proposal endpoints
// per client IP with a fixed window counter.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/diewo77/go-partners/httpx"
	"github.com/diewo77/go-partners/internal/logger"
	"github.com/diewo77/go-partners/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Limiter interface {
	// Allow counts one hit for key and reports whether it is within limit.
	Allow(ctx context.Context, key string) (bool, error)
	// Window is the length of one counting window.
	Window() time.Duration
}

// Redis shares the counters across instances.
type Redis struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedis(rdb *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, limit: int64(limit), window: window, now: time.Now}
}

func (l *Redis) Window() time.Duration { return l.window }

func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	k := "partners:rl:" + key + ":" + strconv.FormatInt(bucket, 10)
	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= l.limit, nil
}

// Memory is the single instance fallback used when Redis is not configured.
type Memory struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	bucket int64
	counts map[string]int
}

func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{limit: limit, window: window, now: time.Now, counts: map[string]int{}}
}

func (l *Memory) Window() time.Duration { return l.window }

func (l *Memory) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bucket := l.now().UnixNano() / int64(l.window)
	if bucket != l.bucket {
		l.bucket = bucket
		clear(l.counts)
	}
	l.counts[key]++
	return l.counts[key] <= l.limit, nil
}

// retryAfter is the window in whole seconds, at least one.
func retryAfter(window time.Duration) string {
	secs := int64((window + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware answers 429 once the caller's IP exceeds the limit. Counter
// errors let the request through.
func Middleware(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.FromContext(r.Context()).Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				metrics.RateLimited.Inc()
				w.Header().Set("Retry-After", retryAfter(l.Window()))
				httpx.JSONError(w, http.StatusTooManyRequests, "rate_limited", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
