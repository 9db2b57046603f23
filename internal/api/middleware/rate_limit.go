package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
)

// KeyFunc derives the rate limit bucket for a request.
type KeyFunc func(r *http.Request) string

// KeyByIP buckets requests by client address.
func KeyByIP() KeyFunc {
	return func(r *http.Request) string {
		return "rl:ip:" + clientIP(r)
	}
}

// KeyByIPAndPath buckets requests by client address and URL path.
func KeyByIPAndPath() KeyFunc {
	return func(r *http.Request) string {
		return "rl:path:" + r.URL.Path + ":ip:" + clientIP(r)
	}
}

// incrExpire increments the bucket and starts its window on the first hit.
var incrExpire = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RateLimiter counts requests per bucket in fixed Redis windows.
type RateLimiter struct {
	rdb    redis.Scripter
	max    int
	window time.Duration
	keyFn  KeyFunc
	logger *slog.Logger
}

// NewRateLimiter returns a limiter admitting max requests per window for each
// bucket. A nil client or a non-positive max disables limiting.
func NewRateLimiter(rdb redis.Scripter, max int, window time.Duration, keyFn KeyFunc, log *slog.Logger) *RateLimiter {
	if keyFn == nil {
		keyFn = KeyByIP()
	}
	if log == nil {
		log = slog.Default()
	}
	return &RateLimiter{
		rdb:    rdb,
		max:    max,
		window: window,
		keyFn:  keyFn,
		logger: log.With(slog.String("component", "rate_limiter")),
	}
}

// Limit rejects requests over the limit with 429. Redis failures let the
// request through.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	if l.rdb == nil || l.max <= 0 || l.window <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		res, err := incrExpire.Run(ctx, l.rdb, []string{l.keyFn(r)}, l.window.Milliseconds()).Int64Slice()
		if err != nil || len(res) != 2 {
			logger.FromContextOrDefault(ctx, l.logger).
				Warn("rate limit check failed, allowing request", "error", redact.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		count, ttlMS := int(res[0]), res[1]
		resetSec := 0
		if ttlMS > 0 {
			resetSec = int((time.Duration(ttlMS)*time.Millisecond + time.Second - 1) / time.Second)
		}

		remaining := l.max - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > l.max {
			if resetSec > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(resetSec))
			}
			shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests, "Rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	return host
}
