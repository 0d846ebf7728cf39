// Package service implements destination posts: ownership-gated mutation,
// listing, and search. Gated operations take the caller's session explicitly.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"

	authmodels "wanderlog/internal/auth/models"
	"wanderlog/internal/platform/metrics"
	"wanderlog/internal/posts/models"
	id "wanderlog/pkg/domain"
	dErrors "wanderlog/pkg/domain-errors"
	"wanderlog/pkg/platform/sentinel"
	"wanderlog/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuthorDirectory

// Store persists posts. UpdateDescription and Delete only affect a post owned
// by ownerID and report anything else as sentinel.ErrNotFound.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, postID id.PostID) (*models.Post, error)
	UpdateDescription(ctx context.Context, postID id.PostID, ownerID id.UserID, description string) error
	Delete(ctx context.Context, postID id.PostID, ownerID id.UserID) error
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Post, error)
	ListAll(ctx context.Context) ([]*models.Post, error)
	Search(ctx context.Context, q models.SearchQuery) ([]*models.Post, error)
}

// AuthorDirectory resolves post owners to usernames.
type AuthorDirectory interface {
	UserByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
}

var tracer = otel.Tracer("wanderlog/internal/posts/service")

// Service coordinates the post store and author lookups.
type Service struct {
	store   Store
	authors AuthorDirectory
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// WithAuthorDirectory fills Post.Author on reads whose store leaves it empty.
func WithAuthorDirectory(authors AuthorDirectory) Option {
	return func(s *Service) { s.authors = authors }
}

// New constructs the service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("post store is required")
	}
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// requireSession rejects a nil or expired capability.
func requireSession(ctx context.Context, sess *authmodels.Session) error {
	if sess == nil || sess.UserID.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "login required")
	}
	if sess.IsExpired(requestcontext.Now(ctx)) {
		return dErrors.New(dErrors.CodeUnauthorized, "session expired")
	}
	return nil
}

func translateStoreErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "post not found")
	}
	if dErrors.HasCode(err, dErrors.CodeTimeout) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
