package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	platformmw "stamprally/internal/platform/middleware"
	"stamprally/internal/ratelimit/store"
)

// Limiter is the store surface the middleware needs.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*store.Result, error)
}

// Middleware applies a per-IP sliding window to hot endpoints. A limiter
// failure fails open: scans keep working when Redis is down.
type Middleware struct {
	limiter Limiter
	limit   int
	window  time.Duration
	logger  *slog.Logger
}

// New constructs the rate limit middleware.
func New(limiter Limiter, limit int, window time.Duration, logger *slog.Logger) *Middleware {
	return &Middleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		logger:  logger,
	}
}

// Limit wraps a handler with the per-IP window.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := platformmw.GetClientIP(ctx)
		if ip == "" {
			ip = platformmw.ClientIPFromRequest(r)
		}

		result, err := m.limiter.Allow(ctx, ip, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed, allowing request", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false,"error":"too many scan attempts, slow down"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
