package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes recorded by IncLogin.
const (
	LoginSucceeded = "success"
	LoginFailed    = "failure"
)

// Metrics holds every Prometheus collector the application records into.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	UsersRegistered    prometheus.Counter
	Logins             *prometheus.CounterVec
	PostsCreated       prometheus.Counter
	PostsUpdated       prometheus.Counter
	PostsDeleted       prometheus.Counter
	OwnershipDenials   *prometheus.CounterVec
	RateLimited        *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "wanderlog_users_registered_total",
			Help: "Total number of accounts registered",
		}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wanderlog_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		PostsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "wanderlog_posts_created_total",
			Help: "Total number of destination posts created",
		}),
		PostsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "wanderlog_posts_updated_total",
			Help: "Total number of post descriptions updated",
		}),
		PostsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "wanderlog_posts_deleted_total",
			Help: "Total number of posts deleted",
		}),
		OwnershipDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wanderlog_ownership_denials_total",
			Help: "Edit or delete attempts rejected because the caller does not own the post",
		}, []string{"action"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wanderlog_rate_limited_total",
			Help: "Requests rejected by the per-IP limiter",
		}, []string{"scope"}),
		HTTPRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wanderlog_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
	}
}

// IncrementUsersRegistered records a successful registration.
func (m *Metrics) IncrementUsersRegistered() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
}

// IncrementLogin records a login attempt with outcome LoginSucceeded or
// LoginFailed.
func (m *Metrics) IncrementLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementPostsCreated() {
	if m == nil {
		return
	}
	m.PostsCreated.Inc()
}

func (m *Metrics) IncrementPostsUpdated() {
	if m == nil {
		return
	}
	m.PostsUpdated.Inc()
}

func (m *Metrics) IncrementPostsDeleted() {
	if m == nil {
		return
	}
	m.PostsDeleted.Inc()
}

// IncrementOwnershipDenied records a rejected edit or delete.
func (m *Metrics) IncrementOwnershipDenied(action string) {
	if m == nil {
		return
	}
	m.OwnershipDenials.WithLabelValues(action).Inc()
}

// IncrementRateLimited records a request rejected for scope.
func (m *Metrics) IncrementRateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(scope).Inc()
}

// ObserveHTTPRequest records request latency. Call with time.Now() taken
// before the handler ran.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}
