package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"wanderlog/pkg/requestcontext"
)

// BucketStore decides whether one more request fits in key's window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Config sets the per-IP budget. A Limit of zero disables limiting.
type Config struct {
	Limit  int
	Window time.Duration
	Logger *slog.Logger
	// Rejected renders the 429 page; a plain body when nil.
	Rejected http.Handler
	// OnLimited is called for every rejected request.
	OnLimited func(scope string)
}

// PerIP limits requests to scope by client IP. Store errors let the request
// through.
func PerIP(store BucketStore, scope string, cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Limit <= 0 || cfg.Window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			res, err := store.Allow(ctx, scope+":"+ip, cfg.Limit, cfg.Window)
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.ErrorContext(ctx, "rate limit check failed",
						"scope", scope,
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			retry := int(math.Ceil(res.RetryAfter(requestcontext.Now(ctx)).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
			if cfg.Logger != nil {
				cfg.Logger.WarnContext(ctx, "rate limit exceeded",
					"scope", scope,
					"client_ip", ip,
					"request_id", requestcontext.RequestID(ctx),
				)
			}
			if cfg.OnLimited != nil {
				cfg.OnLimited(scope)
			}
			if cfg.Rejected != nil {
				cfg.Rejected.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		})
	}
}
