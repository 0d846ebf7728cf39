package service

import (
	"context"

	"wanderlog/internal/posts/models"
	id "wanderlog/pkg/domain"
)

// ListForUser returns every post owned by userID.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID) ([]*models.Post, error) {
	ctx, span := tracer.Start(ctx, "posts.ListForUser")
	defer span.End()

	posts, err := s.store.ListByOwner(ctx, userID)
	if err != nil {
		return nil, translateStoreErr(err, "failed to list posts")
	}
	return s.withAuthors(ctx, posts), nil
}

// ListAll returns the landing feed, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*models.Post, error) {
	ctx, span := tracer.Start(ctx, "posts.ListAll")
	defer span.End()

	posts, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, translateStoreErr(err, "failed to list posts")
	}
	return s.withAuthors(ctx, posts), nil
}

// Search filters the feed by text (description or city) and country. Both
// match as raw substrings; only an empty value leaves a field unconstrained.
func (s *Service) Search(ctx context.Context, q models.SearchQuery) ([]*models.Post, error) {
	ctx, span := tracer.Start(ctx, "posts.Search")
	defer span.End()

	posts, err := s.store.Search(ctx, q)
	if err != nil {
		return nil, translateStoreErr(err, "failed to search posts")
	}
	return s.withAuthors(ctx, posts), nil
}

// withAuthors fills missing Author fields. A failed lookup leaves the field
// empty rather than failing the listing.
func (s *Service) withAuthors(ctx context.Context, posts []*models.Post) []*models.Post {
	if s.authors == nil {
		return posts
	}
	names := make(map[id.UserID]string)
	for _, p := range posts {
		if p.Author != "" {
			continue
		}
		name, ok := names[p.UserID]
		if !ok {
			if u, err := s.authors.UserByID(ctx, p.UserID); err == nil {
				name = u.Username
			} else {
				s.logger.WarnContext(ctx, "author lookup failed", "user_id", p.UserID.String(), "error", err)
			}
			names[p.UserID] = name
		}
		p.Author = name
	}
	return posts
}
