// Package service implements registration, login, and session lookup.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"wanderlog/internal/auth/models"
	"wanderlog/internal/auth/password"
	"wanderlog/internal/platform/metrics"
	id "wanderlog/pkg/domain"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,SessionStore

// UserStore persists accounts. Create reports a username or email collision
// as sentinel.ErrAlreadyUsed.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// SessionStore persists login sessions. FindByID never returns an expired
// session.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}

const (
	DefaultSessionTTL  = 12 * time.Hour
	DefaultRememberTTL = 365 * 24 * time.Hour
)

var tracer = otel.Tracer("wanderlog/internal/auth/service")

// Service owns the account and session lifecycle.
type Service struct {
	users    UserStore
	sessions SessionStore
	hasher   *password.Hasher
	logger   *slog.Logger
	metrics  *metrics.Metrics

	SessionTTL  time.Duration
	RememberTTL time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithHasher replaces the default bcrypt hasher. Tests use a low cost.
func WithHasher(h *password.Hasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// WithSessionTTL sets the lifetime of sessions created without "remember me".
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.SessionTTL = ttl
		}
	}
}

// WithRememberTTL sets the lifetime of sessions created with "remember me".
func WithRememberTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.RememberTTL = ttl
		}
	}
}

// New constructs the service. Both stores are required.
func New(users UserStore, sessions SessionStore, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("users store is required")
	}
	if sessions == nil {
		return nil, errors.New("sessions store is required")
	}
	s := &Service{
		users:       users,
		sessions:    sessions,
		hasher:      password.NewHasher(0),
		logger:      slog.Default(),
		SessionTTL:  DefaultSessionTTL,
		RememberTTL: DefaultRememberTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attrs ...any) {
	args := append([]any{"event", event}, attrs...)
	s.logger.InfoContext(ctx, "audit", args...)
}

// verifyDummy spends a bcrypt comparison on unknown usernames so both login
// failure paths take comparable time.
func (s *Service) verifyDummy(plaintext string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("wanderlog-unknown-user")
	})
	if s.dummyHash != "" {
		_ = s.hasher.Verify(plaintext, s.dummyHash)
	}
}
