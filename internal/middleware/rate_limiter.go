package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"unihub/internal/cache"
	"unihub/internal/contextutils"
	"unihub/internal/response"
	"unihub/internal/services"
)

// RateLimiterConfig holds rate limiting configuration
type RateLimiterConfig struct {
	Enabled bool          `json:"enabled"`
	Limit   int           `json:"limit"`
	Window  time.Duration `json:"window"`
}

// DefaultRateLimiterConfig allows 120 requests per minute per caller
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Enabled: true,
		Limit:   120,
		Window:  time.Minute,
	}
}

// RateLimitResult represents the result of rate limit check
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// RateLimiter is a fixed-window limiter keyed by user id, or client IP for
// anonymous callers. Counters live in the shared cache so every instance
// sees the same window when the cache is redis.
type RateLimiter struct {
	cache   cache.Cache
	config  *RateLimiterConfig
	builder *response.Builder
	logger  *zap.Logger
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter. A nil cache disables limiting.
func NewRateLimiter(c cache.Cache, config *RateLimiterConfig, builder *response.Builder, logger *zap.Logger) *RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{cache: c, config: config, builder: builder, logger: logger, now: time.Now}
}

// RateLimit applies limiter to the wrapped handler
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.config.Enabled || limiter.cache == nil || limiter.config.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			result := limiter.checkFixedWindow(r.Context(), limiter.callerKey(r))
			limiter.writeRateLimitHeaders(w, result)
			if !result.Allowed {
				GetRequestLogger(r.Context()).Warn("Rate limit exceeded",
					zap.Int("limit", result.Limit),
					zap.Duration("retry_after", result.RetryAfter),
				)
				limiter.builder.WriteError(w, r, &services.ServiceError{
					Type:       "RATE_LIMIT_EXCEEDED",
					Message:    "Rate limit exceeded",
					StatusCode: http.StatusTooManyRequests,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) callerKey(r *http.Request) string {
	if userID := contextutils.GetUserID(r.Context()); userID > 0 {
		return fmt.Sprintf("ratelimit:user:%d", userID)
	}
	return "ratelimit:ip:" + getClientIP(r)
}

// checkFixedWindow counts the request in the current window. The
// read-increment-write is not atomic across instances, so bursts may
// slightly exceed Limit.
func (rl *RateLimiter) checkFixedWindow(ctx context.Context, key string) *RateLimitResult {
	now := rl.now()
	windowStart := now.Truncate(rl.config.Window)
	windowKey := fmt.Sprintf("%s:%d", key, windowStart.Unix())

	count := 0
	if raw, ok := rl.cache.Get(ctx, windowKey); ok {
		count, _ = strconv.Atoi(string(raw))
	}

	allowed := count < rl.config.Limit
	if allowed {
		count++
		if err := rl.cache.Set(ctx, windowKey, []byte(strconv.Itoa(count)), rl.config.Window); err != nil {
			rl.logger.Warn("Failed to store rate limit counter", zap.String("key", windowKey), zap.Error(err))
		}
	}

	resetTime := windowStart.Add(rl.config.Window)
	return &RateLimitResult{
		Allowed:    allowed,
		Limit:      rl.config.Limit,
		Remaining:  max(rl.config.Limit-count, 0),
		ResetTime:  resetTime,
		RetryAfter: resetTime.Sub(now),
	}
}

func (rl *RateLimiter) writeRateLimitHeaders(w http.ResponseWriter, result *RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
	if !result.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
	}
}
