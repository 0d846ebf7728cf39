package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"wanderlog/internal/platform/metrics"
	"wanderlog/internal/platform/middleware"
	"wanderlog/internal/ratelimit"
)

// RequestTimeout bounds every page request.
const RequestTimeout = 30 * time.Second

// RouterConfig carries what NewRouter needs beyond the handler.
type RouterConfig struct {
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	SecureCookies bool
	HealthChecks  []HealthCheck

	// TrustProxyHeaders lets chi's RealIP rewrite RemoteAddr from
	// X-Forwarded-For or X-Real-IP before the client IP is recorded.
	TrustProxyHeaders bool
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	// AuthRateLimit caps POST /login and POST /register per client IP within
	// AuthRateWindow. Zero disables the limit.
	AuthRateLimit  int
	AuthRateWindow time.Duration
	RateLimitStore ratelimit.BucketStore
}

// NewRouter wires the middleware chain and every route.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limitStore := cfg.RateLimitStore
	if limitStore == nil {
		limitStore = ratelimit.NewInMemoryBucketStore()
	}
	limit := func(scope string) func(http.Handler) http.Handler {
		return ratelimit.PerIP(limitStore, scope, ratelimit.Config{
			Limit:     cfg.AuthRateLimit,
			Window:    cfg.AuthRateWindow,
			Logger:    logger,
			Rejected:  http.HandlerFunc(h.tooManyRequests),
			OnLimited: cfg.Metrics.IncrementRateLimited,
		})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger, http.HandlerFunc(h.serverError)))
	r.Use(middleware.Latency(cfg.Metrics))
	r.Use(middleware.RouteSpanName)
	r.Use(chimw.CleanPath)
	r.Use(chimw.Timeout(RequestTimeout))

	r.Get("/healthz", h.handleHealth(cfg.HealthChecks))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(h.auth, SessionCookieName, logger))
		r.Use(middleware.CSRF(middleware.CSRFConfig{
			CookieName: CSRFCookieName,
			Secure:     cfg.SecureCookies,
			Logger:     logger,
			Failure:    http.HandlerFunc(h.csrfFailure),
		}))

		r.Get("/", h.handleIndex)
		r.Get("/search", h.handleSearch)
		r.Get("/login", h.handleLoginForm)
		r.With(limit("login")).Post("/login", h.handleLogin)
		r.Get("/logout", h.handleLogout)
		r.Get("/register", h.handleRegisterForm)
		r.With(limit("register")).Post("/register", h.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession("/login"))
			r.Get("/user/{username}", h.handleProfile)
			r.Post("/user/{username}", h.handleCreatePost)
			r.Post("/post/{id}/edit", h.handleEditPost)
			r.Post("/post/{id}/delete", h.handleDeletePost)
		})

		r.NotFound(h.notFound)
	})

	opts := []otelhttp.Option{
		// renamed to the route pattern by middleware.RouteSpanName
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method
		}),
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	return otelhttp.NewHandler(r, "wanderlog", opts...)
}
